package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxSelectorLength bounds selectors accepted from the query server.
const maxSelectorLength = 4096

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could be used for path traversal when a name is
// joined onto a node_modules directory.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 214 characters (the npm registry limit)
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 214 {
		return New(ErrCodeInvalidPackage, "package name too long (max 214 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// npmPackageNameRegex matches valid npm package names.
var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateNpmPackageName validates an npm package name.
// Legacy packages with uppercase letters are accepted; only the character set
// and scope shape are enforced.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if !npmPackageNameRegex.MatchString(strings.ToLower(name)) {
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}

	return nil
}

// ValidateSelector performs cheap sanity checks on a selector string before
// it reaches the parser. Syntax is checked by the selector package.
func ValidateSelector(s string) error {
	if len(s) > maxSelectorLength {
		return New(ErrCodeInvalidSelector, "selector too long (max %d characters)", maxSelectorLength)
	}
	for _, r := range s {
		if r == '\x00' || (unicode.IsControl(r) && r != '\t' && r != '\n') {
			return New(ErrCodeInvalidSelector, "selector contains invalid control characters")
		}
	}
	return nil
}
