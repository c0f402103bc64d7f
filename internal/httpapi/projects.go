package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"diffractcore/internal/core"
)

type createProjectRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
}

type updateProjectRequest struct {
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
}

type restoreRequest struct {
	Key  string `json:"key" binding:"required"`
	AsID string `json:"as_id"`
}

type engineRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) listProjects(c *gin.Context) {
	list, err := s.svc.ListProjects(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	doc, res, err := s.svc.CreateProject(c.Request.Context(), req.ID, core.ProjectInfo{Name: req.Name, ShortDescription: req.ShortDescription})
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, doc, res)
}

func (s *Server) getProject(c *gin.Context) {
	doc, err := s.svc.GetProject(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) updateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	info, res, err := s.svc.UpdateProjectInfo(c.Request.Context(), c.Param("project"), req.Name, req.ShortDescription)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, info, res)
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.svc.DeleteProject(c.Request.Context(), c.Param("project")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) exportDocument(c *gin.Context) {
	data, err := s.svc.ExportDocument(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+c.Param("project")+`.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// importDocument accepts a plain or compressed project document.
func (s *Server) importDocument(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	doc, res, err := s.svc.ImportDocument(c.Request.Context(), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, doc, res)
}

func (s *Server) archiveProject(c *gin.Context) {
	info, err := s.svc.ArchiveProject(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": info})
}

func (s *Server) listArchives(c *gin.Context) {
	list, err := s.svc.ListArchives(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) restoreArchive(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	doc, res, err := s.svc.RestoreArchive(c.Request.Context(), req.Key, req.AsID)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, doc, res)
}

func (s *Server) listEngines(c *gin.Context) {
	names, selected := s.svc.Engines()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"engines": names, "selected": selected}})
}

func (s *Server) useEngine(c *gin.Context) {
	var req engineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.UseEngine(req.Name); err != nil {
		s.fail(c, err)
		return
	}
	s.listEngines(c)
}

func (s *Server) listPlugins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.svc.RegisteredPlugins()})
}
