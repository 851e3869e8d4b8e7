// Package language normalizes the language hint carried by a pipeline request
// and maps detected language codes to display names.
package language
