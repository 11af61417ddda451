package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"asha/internal/logging"

	"github.com/ledongthuc/pdf"
)

// LoadedFile is the extracted text of one PDF.
type LoadedFile struct {
	Path  string
	Name  string // base name, used as the chunk source
	Pages int
	Text  string
}

// IsPDF reports whether path has a .pdf extension, ignoring case.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// LoadFile extracts plain text from every page of a PDF and joins the pages
// with a single space.
func LoadFile(path string) (*LoadedFile, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logging.Get(logging.CategoryKnowledge).Warn("Skipping page %d of %s: %v", i, path, err)
			continue
		}
		pages = append(pages, text)
	}

	return &LoadedFile{
		Path:  path,
		Name:  filepath.Base(path),
		Pages: r.NumPage(),
		Text:  strings.Join(pages, " "),
	}, nil
}

// ListPDFs returns the PDFs directly inside dir, sorted by name.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir loads every PDF in dir. Files that fail to parse are logged and
// skipped.
func LoadDir(dir string) ([]*LoadedFile, error) {
	paths, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}

	files := make([]*LoadedFile, 0, len(paths))
	for _, p := range paths {
		lf, err := LoadFile(p)
		if err != nil {
			logging.Get(logging.CategoryKnowledge).Error("Failed to load %s: %v", p, err)
			continue
		}
		logging.KnowledgeDebug("Loaded %s (%d pages, %d chars)", lf.Name, lf.Pages, len(lf.Text))
		files = append(files, lf)
	}
	return files, nil
}
