package shapeload

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// sidecarDecoder builds an attribute decoder from the shapefile's .cpg
// sidecar. Without a sidecar, or with an unrecognized charset, attributes
// pass through unchanged.
func sidecarDecoder(shpPath string) (func(string) string, error) {
	identity := func(s string) string { return s }

	cpgPath := strings.TrimSuffix(shpPath, ".shp") + ".cpg"
	raw, err := os.ReadFile(cpgPath)
	if os.IsNotExist(err) {
		return identity, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: read charset sidecar %s", cpgPath)
	}

	charset := normalizeCharset(string(raw))
	if charset == "" || charset == "utf-8" {
		return identity, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		zap.L().Warn("shapeload: unrecognized charset sidecar, using attributes as-is",
			zap.String("sidecar", cpgPath),
			zap.String("charset", charset),
		)
		return identity, nil
	}

	return func(s string) string {
		decoded, err := enc.NewDecoder().String(s)
		if err != nil {
			return s
		}
		return decoded
	}, nil
}

// normalizeCharset maps the codepage spellings seen in .cpg sidecars to
// the names htmlindex understands.
func normalizeCharset(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	c = strings.TrimPrefix(c, "cp")
	c = strings.TrimPrefix(c, "windows-")
	c = strings.TrimPrefix(c, "oem ")

	switch c {
	case "", "utf-8", "utf8", "65001":
		return "utf-8"
	case "1252", "ansi 1252":
		return "windows-1252"
	case "1251":
		return "windows-1251"
	case "88591", "iso-8859-1", "latin1":
		return "iso-8859-1"
	case "936", "gbk":
		return "gbk"
	case "932", "shift_jis", "sjis":
		return "shift_jis"
	default:
		return c
	}
}
