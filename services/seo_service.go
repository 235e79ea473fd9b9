package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"sortashort_server/models"
)

const (
	defaultDescription = "Assista curtas."
	defaultImage       = "https://via.placeholder.com/1200"
)

// ErrShellMissing is returned when the SPA shell cannot be read.
var ErrShellMissing = errors.New("index lost")

// CatalogSource supplies the movie catalog used for page metadata.
type CatalogSource interface {
	Catalog(ctx context.Context) map[string]models.CatalogEntry
}

// PageMeta is substituted into the shell placeholders.
type PageMeta struct {
	Title       string
	Description string
	Image       string
}

// SEOService renders the SPA shell with per-movie metadata.
type SEOService struct {
	StaticRoot string
	ShellFile  string
	Catalog    CatalogSource
}

func NewSEOService(staticRoot, shellFile string, catalog CatalogSource) *SEOService {
	return &SEOService{StaticRoot: staticRoot, ShellFile: shellFile, Catalog: catalog}
}

// Meta resolves the metadata for movieID, falling back to the site defaults
// when the id is empty or absent from the catalog.
func (ss *SEOService) Meta(ctx context.Context, movieID string) PageMeta {
	meta := PageMeta{Title: models.DefaultTitle, Description: defaultDescription, Image: defaultImage}
	if movieID == "" || ss.Catalog == nil {
		return meta
	}
	entry, ok := ss.Catalog.Catalog(ctx)[movieID]
	if !ok {
		return meta
	}
	year := ""
	if entry.Year != nil {
		year = fmt.Sprint(entry.Year)
	}
	return PageMeta{
		Title:       entry.Title + " | " + models.DefaultTitle,
		Description: year + " - " + entry.Director,
		Image:       "/posters/" + movieID + ".jpg",
	}
}

// Render reads the shell and substitutes the metadata for movieID. The shell
// is read on every call so a redeploy of the static root needs no restart.
func (ss *SEOService) Render(ctx context.Context, movieID string) (string, error) {
	shell, err := ss.readShell()
	if err != nil {
		return "", err
	}
	meta := ss.Meta(ctx, movieID)
	return strings.NewReplacer(
		"{{META_TITLE}}", html.EscapeString(meta.Title),
		"{{META_DESC}}", html.EscapeString(meta.Description),
		"{{META_IMAGE}}", html.EscapeString(meta.Image),
	).Replace(shell), nil
}

func (ss *SEOService) readShell() (string, error) {
	root, err := os.OpenRoot(ss.StaticRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrShellMissing, err)
	}
	defer root.Close()

	f, err := root.Open(ss.ShellFile)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrShellMissing, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrShellMissing, err)
	}
	return string(b), nil
}
