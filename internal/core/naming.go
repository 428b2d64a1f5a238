package core

import (
	"fmt"
	"path"
	"strings"
)

type RevisionedParts struct {
	Dir   string
	Stem  string
	Token string
	Ext   string
}

// RevisionedName inserts token between the stem and the extension of a
// slash-separated name: css/site-v1.css becomes css/site-v1-<token>.css.
func RevisionedName(name, token string) (string, error) {
	if !IsToken(token) {
		return "", fmt.Errorf("invalid fingerprint token %q", token)
	}

	dir, base := path.Split(name)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		return "", fmt.Errorf("asset name %q has no stem", name)
	}

	return dir + stem + "-" + token + ext, nil
}

func ParseRevisionedName(name string) (RevisionedParts, error) {
	dir, base := path.Split(name)
	ext := path.Ext(base)
	withoutExt := strings.TrimSuffix(base, ext)

	idx := strings.LastIndex(withoutExt, "-")
	if idx <= 0 {
		return RevisionedParts{}, fmt.Errorf("%q is not a revisioned name", name)
	}

	token := withoutExt[idx+1:]
	if !IsToken(token) {
		return RevisionedParts{}, fmt.Errorf("%q has no valid fingerprint token", name)
	}

	return RevisionedParts{
		Dir:   dir,
		Stem:  withoutExt[:idx],
		Token: token,
		Ext:   ext,
	}, nil
}

func IsRevisionedName(name string) bool {
	_, err := ParseRevisionedName(name)
	return err == nil
}

// SuffixedName appends suffix to the stem: app.js with ".min" becomes app.min.js.
func SuffixedName(name, suffix string) string {
	if suffix == "" {
		return name
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}
