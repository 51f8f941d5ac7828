package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Kind    Kind
	Message string
	Detail  string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E119)
	// ============================================

	"E100": {
		Kind:    KindConfig,
		Message: "Invalid build configuration",
	},
	"E101": {
		Kind:    KindConfig,
		Message: "Referenced file does not exist",
	},
	"E102": {
		Kind:    KindConfig,
		Message: "Missing required setting",
	},
	"E103": {
		Kind:    KindConfig,
		Message: "Configuration file not found",
	},
	"E104": {
		Kind:    KindConfig,
		Message: "Configuration file could not be parsed",
	},
	"E105": {
		Kind:    KindConfig,
		Message: "Invalid resource manifest",
	},

	// ============================================
	// Metadata Errors (E120-E139)
	// ============================================

	"E120": {
		Kind:    KindMetadata,
		Message: "Project manifest not found",
	},
	"E121": {
		Kind:    KindMetadata,
		Message: "Project manifest could not be parsed",
	},
	"E122": {
		Kind:    KindMetadata,
		Message: "Required manifest field missing",
	},
	"E123": {
		Kind:    KindMetadata,
		Message: "Invalid project version",
	},
	"E124": {
		Kind:    KindMetadata,
		Message: "License file could not be read",
	},

	// ============================================
	// Preprocess Errors (E140-E159)
	// ============================================

	"E140": {
		Kind:    KindPreprocess,
		Message: "Source preparation failed",
	},
	"E141": {
		Kind:    KindPreprocess,
		Message: "Source preprocessing failed",
	},

	// ============================================
	// Compile Errors (E160-E179)
	// ============================================

	"E160": {
		Kind:    KindCompile,
		Message: "Toolchain exited with an error",
	},
	"E161": {
		Kind:    KindCompile,
		Message: "Toolchain aborted",
	},
	"E162": {
		Kind:    KindCompile,
		Message: "Toolchain could not be started",
	},
	"E163": {
		Kind:    KindCompile,
		Message: "Toolchain produced no artifact",
	},

	// ============================================
	// Packaging Errors (E180-E199)
	// ============================================

	"E180": {
		Kind:    KindPackaging,
		Message: "Postprocessing failed",
	},
	"E181": {
		Kind:    KindPackaging,
		Message: "Output could not be assembled",
	},
	"E182": {
		Kind:    KindPackaging,
		Message: "Archive could not be created",
	},
	"E183": {
		Kind:    KindPackaging,
		Message: "Archive upload failed",
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

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
