// Package config provides configuration parsing for the widget panel.
//
// The configuration is stored in widgets.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "local": {
//	    "store": "widgets",
//	    "pageSize": 25,
//	    "origin": "http://localhost:8082"
//	  },
//	  "remote": {
//	    "catalog": "https://widgets.structr.org/structr/rest/widgets",
//	    "timeout": "30s"
//	  },
//	  "executor": {
//	    "url": "ws://localhost:8082/structr/ws"
//	  },
//	  "server": { "addr": ":8090" },
//	  "log": { "level": "info", "format": "text" },
//	  "tracing": { "endpoint": "localhost:4318" }
//	}
//
// The remote catalog can be overridden with the WIDGETS_REMOTE_CATALOG
// environment variable.
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Catalog:", cfg.Remote.Catalog)
package config
