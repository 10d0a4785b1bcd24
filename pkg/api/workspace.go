package api

import (
	"net/http"
)

func (s *Server) workspaceHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Workspace())
}

func (s *Server) projectHandler(w http.ResponseWriter, r *http.Request) {
	project, ok := s.engine.Project(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	page, ok := s.engine.Page(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// tabHandler returns the tab with its merged content view
func (s *Server) tabHandler(w http.ResponseWriter, r *http.Request) {
	tab, ok := s.engine.Tab(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "tab not found")
		return
	}
	writeJSON(w, http.StatusOK, tab)
}
