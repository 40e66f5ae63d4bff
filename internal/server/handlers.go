package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/instantiate"
	"github.com/vango-dev/widgets/internal/params"
	"github.com/vango-dev/widgets/internal/pathtree"
	"github.com/vango-dev/widgets/internal/widget"
)

type listResponse struct {
	Origin  widget.Origin   `json:"origin"`
	Query   string          `json:"query,omitempty"`
	Widgets []widget.Widget `json:"widgets"`
}

type pageResponse struct {
	Loaded int `json:"loaded"`
	Total  int `json:"total"`
}

type treeNode struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	IsLeafContainer bool       `json:"isLeafContainer,omitempty"`
	Widgets         []string   `json:"widgets,omitempty"`
	Children        []treeNode `json:"children,omitempty"`
}

type addRequest struct {
	Name     string `json:"name"`
	TreePath string `json:"treePath"`
}

type sourceRequest struct {
	Source *string `json:"source"`
}

type instanceRequest struct {
	TargetID    string `json:"targetId"`
	ContainerID string `json:"pageId"`

	// Values submits the form. Without it a widget that needs input only
	// returns its fields.
	Values map[string]string `json:"values"`
}

type instanceResponse struct {
	Dispatched  bool           `json:"dispatched"`
	Prompt      bool           `json:"prompt"`
	Description *string        `json:"description,omitempty"`
	Fields      []params.Field `json:"fields,omitempty"`
}

func (s *Server) listWidgets(w http.ResponseWriter, r *http.Request) {
	origin, ok := parseOrigin(r.URL.Query().Get("origin"))
	if !ok {
		writeErr(w, http.StatusBadRequest, "bad_request", "origin must be local or remote")
		return
	}
	resp := listResponse{Origin: origin}
	if origin == widget.OriginRemote {
		resp.Query = r.URL.Query().Get("q")
		resp.Widgets = s.registry.FilterRemote(resp.Query)
	} else {
		resp.Widgets = s.registry.Local()
	}
	if resp.Widgets == nil {
		resp.Widgets = []widget.Widget{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) loadNextLocal(w http.ResponseWriter, r *http.Request) {
	n, err := s.registry.LoadNextLocalPage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Loaded: n, Total: len(s.registry.Local())})
}

func (s *Server) refreshRemote(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.LoadRemoteSnapshot(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Total: len(s.registry.Remote())})
}

func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	origin, ok := parseOrigin(chi.URLParam(r, "origin"))
	if !ok {
		writeErr(w, http.StatusNotFound, "not_found", "unknown tree "+chi.URLParam(r, "origin"))
		return
	}
	t := s.registry.LocalTree()
	if origin == widget.OriginRemote {
		t = s.registry.RemoteTree()
	}
	writeJSON(w, http.StatusOK, toTreeNode(t.Root()))
}

func (s *Server) getWidget(w http.ResponseWriter, r *http.Request) {
	wd, err := s.registry.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

func (s *Server) deleteWidget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.RemoveLocal(id) {
		writeError(w, errors.New("E230").WithDetail("no local widget with id "+id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Source == nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "body must be {\"source\": \"...\"}")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.registry.EditSource(r.Context(), id, *req.Source); err != nil {
		writeError(w, err)
		return
	}
	wd, err := s.registry.Lookup(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

func (s *Server) addWidget(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
			return
		}
	}
	created, err := s.registry.AddLocal(r.Context(), req.Name, req.TreePath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) copyWidget(w http.ResponseWriter, r *http.Request) {
	created, err := s.registry.CopyRemote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// instantiate runs one attempt. A widget that needs input and arrives
// without values answers with its form; with values, or when no input is
// needed, it is dispatched.
func (s *Server) instantiate(w http.ResponseWriter, r *http.Request) {
	var req instanceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
			return
		}
	}
	if s.dispatcher == nil {
		writeError(w, errors.New("E240").WithDetail("no command executor configured"))
		return
	}
	wd, err := s.registry.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	flow := instantiate.NewFlow(s.dispatcher)
	res, err := flow.Begin(r.Context(), wd, req.TargetID, req.ContainerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if flow.State() == instantiate.StatePromptOpen {
		if req.Values == nil {
			writeJSON(w, http.StatusOK, instanceResponse{
				Prompt:      true,
				Description: res.Description,
				Fields:      res.Fields,
			})
			return
		}
		if err := flow.Submit(r.Context(), req.Values); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusAccepted, instanceResponse{Dispatched: true, Prompt: res.ShouldPrompt})
}

func parseOrigin(s string) (widget.Origin, bool) {
	switch strings.ToLower(s) {
	case "", string(widget.OriginLocal):
		return widget.OriginLocal, true
	case string(widget.OriginRemote):
		return widget.OriginRemote, true
	}
	return "", false
}

func toTreeNode(n *pathtree.Node) treeNode {
	out := treeNode{
		ID:              n.ID,
		Label:           n.Label,
		IsLeafContainer: n.IsLeafContainer,
		Widgets:         n.Widgets,
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, toTreeNode(c))
	}
	return out
}
