package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// zipPart reads the named file from an open zip. Returns nil with no error
// when the entry does not exist.
func zipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		_ = rc.Close()
		return buf.Bytes(), nil
	}
	return nil, nil
}

// xmlEntities covers the five predefined XML entities; numeric character
// references are left alone.
var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func unescapeXML(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return xmlEntities.Replace(s)
}
