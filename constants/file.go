package constants

import (
	"path/filepath"
	"strings"
)

// DocumentKind is the declared kind of an uploaded document.
type DocumentKind string

const (
	PDF         DocumentKind = "PDF"
	SPREADSHEET DocumentKind = "SPREADSHEET"
	UNSUPPORTED DocumentKind = "UNSUPPORTED"
)

// AllowedExtensions maps the accepted upload extensions to their document kind.
var AllowedExtensions = map[string]DocumentKind{
	"pdf":  PDF,
	"xlsx": SPREADSHEET,
	"xlsm": SPREADSHEET,
	"xls":  SPREADSHEET,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// KindFromName maps a filename to its document kind.
func KindFromName(name string) DocumentKind {
	if k, ok := AllowedExtensions[NormalizeExt(filepath.Ext(name))]; ok {
		return k
	}
	return UNSUPPORTED
}

// IsLegacyXLS reports whether name is a BIFF (.xls) workbook rather than OOXML.
func IsLegacyXLS(name string) bool {
	return NormalizeExt(filepath.Ext(name)) == "xls"
}
