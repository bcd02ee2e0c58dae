package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Binding Errors (E001-E009)
	// ============================================

	"E001": {
		Category: CategoryBinding,
		Message:  "Empty shared value key",
		Detail:   "Every binding needs a non-empty key; the key is what joins unrelated components to the same value.",
	},
	"E002": {
		Category: CategoryBinding,
		Message:  "No shared store in scope",
		Detail:   "shared.Use looks the store up on the component tree. Call shared.Provide on an ancestor owner first, or use shared.Bind with an explicit store.",
	},
	"E003": {
		Category: CategoryBinding,
		Message:  "Binding used outside a component",
		Detail:   "Bindings subscribe through an after-commit effect and must be created while a component renders.",
	},

	// ============================================
	// Persistence Errors (E010-E029)
	// ============================================

	"E010": {
		Category: CategoryPersist,
		Message:  "Persisted value could not be decoded",
		Detail:   "The stored text is not valid JSON for the binding's type. The initial value is used instead.",
	},
	"E011": {
		Category: CategoryPersist,
		Message:  "Value could not be encoded for persistence",
		Detail:   "The new value has no JSON representation. The in-memory value was still updated.",
	},
	"E012": {
		Category: CategoryPersist,
		Message:  "Durable storage write failed",
		Detail:   "The storage backend rejected the write. The in-memory value was still updated.",
	},
	"E013": {
		Category: CategoryPersist,
		Message:  "Durable storage read failed",
		Detail:   "The storage backend returned an error while loading the persisted value. The initial value is used instead.",
	},
	"E020": {
		Category: CategoryPersist,
		Message:  "No durable storage configured",
		Detail:   "A binding asked for persistence but the store was built without storage.",
	},

	// ============================================
	// Storage Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryStorage,
		Message:  "Storage file is corrupt",
		Detail:   "The storage file exists but does not hold a JSON object of strings.",
	},
	"E041": {
		Category: CategoryStorage,
		Message:  "Unknown storage backend",
		Detail:   "Supported backends are memory, file and s3.",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is outside its allowed range.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No sharedstate.json or sharedstate.yaml was found.",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Key not found",
		Detail:   "The durable store has no value for this key.",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Invalid JSON value",
		Detail:   "Values written from the command line must be valid JSON.",
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
