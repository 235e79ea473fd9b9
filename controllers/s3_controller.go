package controllers

import (
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"sortashort_server/helpers"
	"sortashort_server/logging"
	"sortashort_server/services"

	"github.com/gorilla/mux"
)

// posterCacheControl marks poster objects as immutable for a year.
const posterCacheControl = "public, max-age=31536000, immutable"

// AssetController proxies posters from the bucket and serves the static build
type AssetController struct {
	AssetService *services.AssetService
	StaticRoot   string
	ShellFile    string
}

func NewAssetController(assetService *services.AssetService, staticRoot, shellFile string) *AssetController {
	return &AssetController{AssetService: assetService, StaticRoot: staticRoot, ShellFile: shellFile}
}

// ServePoster streams posters/<key> from the bucket
func (ac *AssetController) ServePoster(w http.ResponseWriter, r *http.Request) {
	poster, err := ac.AssetService.Poster(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	defer poster.Body.Close()

	w.Header().Set("Content-Type", poster.ContentType)
	w.Header().Set("Cache-Control", posterCacheControl)
	if poster.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(poster.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, poster.Body); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("poster stream interrupted")
	}
}

// staticName maps a request path to a file name inside the static root, or ""
// when the path cannot name a servable file.
func (ac *AssetController) staticName(urlPath string) string {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" || name == ac.ShellFile {
		return ""
	}
	return name
}

// MatchStatic reports whether the request names an existing regular file under
// the static root. The SPA shell is excluded so it always goes through the
// SEO renderer. Lookups go through os.Root so neither ".." nor symlinks can
// escape the root.
func (ac *AssetController) MatchStatic(r *http.Request, _ *mux.RouteMatch) bool {
	name := ac.staticName(r.URL.Path)
	if name == "" {
		return false
	}
	root, err := os.OpenRoot(ac.StaticRoot)
	if err != nil {
		return false
	}
	defer root.Close()

	info, err := root.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// ServeStatic writes a file matched by MatchStatic
func (ac *AssetController) ServeStatic(w http.ResponseWriter, r *http.Request) {
	name := ac.staticName(r.URL.Path)
	root, err := os.OpenRoot(ac.StaticRoot)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		helpers.WriteError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", services.ContentTypeFor(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
