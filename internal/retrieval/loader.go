package retrieval

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed docs/*.md
var builtinFS embed.FS

var docExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// LoadFS reads every markdown and text file under root in fsys.
func LoadFS(fsys fs.FS, root string) ([]Document, error) {
	var docs []Document
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !docExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, root+"/")
		}
		docs = append(docs, Document{Source: rel, Text: string(data)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// LoadDir reads reference documents from a directory on disk.
func LoadDir(dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reference directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reference directory: %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir), ".")
}

// Builtin returns the reference documents compiled into the binary.
func Builtin() ([]Document, error) {
	return LoadFS(builtinFS, "docs")
}
