package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleOpenAPIJSON(c *gin.Context) {
	raw, err := s.docs.JSON(s.docs.Document())
	if err != nil {
		fail(c, http.StatusInternalServerError, "SCHEMA_RENDER_FAILED", err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) handleOpenAPIYAML(c *gin.Context) {
	raw, err := s.docs.YAML(s.docs.Document())
	if err != nil {
		fail(c, http.StatusInternalServerError, "SCHEMA_RENDER_FAILED", err.Error())
		return
	}
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", raw)
}

func (s *Server) handleSchemaProfiles(c *gin.Context) {
	ok(c, gin.H{"profiles": s.docs.Profiles()})
}

func (s *Server) handleProfileSchema(c *gin.Context) {
	doc, err := s.docs.ProfileDocument(c.Param("profile"))
	if err != nil {
		fail(c, http.StatusNotFound, "UNKNOWN_PROFILE", err.Error())
		return
	}
	raw, err := s.docs.JSON(doc)
	if err != nil {
		fail(c, http.StatusInternalServerError, "SCHEMA_RENDER_FAILED", err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
