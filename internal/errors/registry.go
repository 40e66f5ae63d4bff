package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid widgets.json",
		Detail:   "The widgets.json configuration file is malformed.",
		DocURL:   "https://vango.dev/docs/widgets/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration value is not set.",
		DocURL:   "https://vango.dev/docs/widgets/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Not a widget project",
		Detail:   "No widgets.json was found in the current directory or any parent directory.",
		DocURL:   "https://vango.dev/docs/widgets/errors/E122",
	},

	// ============================================
	// Widget Content Errors (E200-E209)
	// ============================================

	"E201": {
		Category: CategoryValidation,
		Message:  "Cannot parse Widget configuration",
		DocURL:   "https://vango.dev/docs/widgets/errors/E201",
	},

	// ============================================
	// Catalog Errors (E210-E219)
	// ============================================

	"E210": {
		Category: CategoryProtocol,
		Message:  "Widget catalog unavailable",
		DocURL:   "https://vango.dev/docs/widgets/errors/E210",
	},
	"E211": {
		Category: CategoryConfig,
		Message:  "Unsupported catalog locator",
		Detail:   "Catalog locators must be http(s)://, s3://, file:// URLs or a local directory.",
		DocURL:   "https://vango.dev/docs/widgets/errors/E211",
	},

	// ============================================
	// Instantiation Errors (E220-E229)
	// ============================================

	"E220": {
		Category: CategoryValidation,
		Message:  "Ignoring empty Widget",
		DocURL:   "https://vango.dev/docs/widgets/errors/E220",
	},
	"E221": {
		Category: CategoryRuntime,
		Message:  "Invalid instantiation state",
		DocURL:   "https://vango.dev/docs/widgets/errors/E221",
	},

	// ============================================
	// Registry Errors (E230-E239)
	// ============================================

	"E230": {
		Category: CategoryRuntime,
		Message:  "Widget not found",
		DocURL:   "https://vango.dev/docs/widgets/errors/E230",
	},

	// ============================================
	// Command Errors (E240-E249)
	// ============================================

	"E240": {
		Category: CategoryProtocol,
		Message:  "Command executor unavailable",
		Detail:   "The command could not be delivered to the page backend.",
		DocURL:   "https://vango.dev/docs/widgets/errors/E240",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
