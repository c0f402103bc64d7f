package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"diffractcore/internal/structure"
	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

type valueRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

type freeRequest struct {
	Free *bool `json:"free" binding:"required"`
}

type boundsRequest struct {
	Lower *float64 `json:"lower"`
	Upper *float64 `json:"upper"`
}

type constraintRequest struct {
	Expression string `json:"expression" binding:"required"`
}

type phaseRequest struct {
	ID string `json:"id"`
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type spaceGroupRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	Setting string `json:"setting"`
}

type atomRequest struct {
	Label     string     `json:"label"`
	Specie    string     `json:"specie" binding:"required"`
	Fract     [3]float64 `json:"fract"`
	Occupancy *float64   `json:"occupancy"`
	ADPType   string     `json:"adp_type"`
	Uiso      float64    `json:"u_iso"`
	Uani      [6]float64 `json:"u_aniso"`
}

type duplicateRequest struct {
	Label string `json:"label"`
}

type adpRequest struct {
	Type string `json:"type" binding:"required"`
}

type experimentRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spaceGroupInfo struct {
	Number  int                    `json:"number"`
	Symbol  string                 `json:"symbol"`
	Setting string                 `json:"setting,omitempty"`
	System  symmetry.CrystalSystem `json:"system"`
	Hall    string                 `json:"hall"`
}

type backgroundRequest struct {
	X         *float64 `json:"x" binding:"required"`
	Intensity float64  `json:"intensity"`
}

func (s *Server) listParameters(c *gin.Context) {
	list, err := s.svc.Parameters(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) parameterReply(c *gin.Context, rec domain.ParameterRecord, res domain.Result, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, rec, res)
}

func (s *Server) setParameterValue(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, res, err := s.svc.SetParameter(c.Request.Context(), c.Param("project"), c.Param("param"), *req.Value)
	s.parameterReply(c, rec, res, err)
}

func (s *Server) setParameterFree(c *gin.Context) {
	var req freeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, res, err := s.svc.SetParameterFree(c.Request.Context(), c.Param("project"), c.Param("param"), *req.Free)
	s.parameterReply(c, rec, res, err)
}

func (s *Server) setParameterBounds(c *gin.Context) {
	var req boundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, res, err := s.svc.SetParameterBounds(c.Request.Context(), c.Param("project"), c.Param("param"), req.Lower, req.Upper)
	s.parameterReply(c, rec, res, err)
}

func (s *Server) linkParameter(c *gin.Context) {
	var req constraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, res, err := s.svc.LinkParameter(c.Request.Context(), c.Param("project"), c.Param("param"), req.Expression)
	s.parameterReply(c, rec, res, err)
}

func (s *Server) unlinkParameter(c *gin.Context) {
	rec, res, err := s.svc.UnlinkParameter(c.Request.Context(), c.Param("project"), c.Param("param"))
	s.parameterReply(c, rec, res, err)
}

func (s *Server) history(c *gin.Context) {
	undo, redo, err := s.svc.CanUndo(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"can_undo": undo, "can_redo": redo}})
}

func (s *Server) undo(c *gin.Context) {
	label, res, err := s.svc.Undo(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, gin.H{"label": label}, res)
}

func (s *Server) redo(c *gin.Context) {
	label, res, err := s.svc.Redo(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, gin.H{"label": label}, res)
}

// resultOnly finishes mutations that return nothing but the rule result.
func (s *Server) resultOnly(c *gin.Context, res domain.Result, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, nil, res)
}

func (s *Server) addPhase(c *gin.Context) {
	var req phaseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	rec, res, err := s.svc.AddDefaultPhase(c.Request.Context(), c.Param("project"), req.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, rec, res)
}

// importCIF takes the CIF text as the request body.
func (s *Server) importCIF(c *gin.Context) {
	recs, res, err := s.svc.ImportCIF(c.Request.Context(), c.Param("project"), c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, recs, res)
}

func (s *Server) exportCIF(c *gin.Context) {
	c.Header("Content-Type", "chemical/x-cif")
	if err := s.svc.ExportPhaseCIF(c.Request.Context(), c.Param("project"), c.Writer, c.QueryArray("phase")...); err != nil {
		s.fail(c, err)
	}
}

func (s *Server) removePhase(c *gin.Context) {
	res, err := s.svc.RemovePhase(c.Request.Context(), c.Param("project"), c.Param("phase"))
	s.resultOnly(c, res, err)
}

func (s *Server) renamePhase(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.RenamePhase(c.Request.Context(), c.Param("project"), c.Param("phase"), req.Name)
	s.resultOnly(c, res, err)
}

func (s *Server) setSpaceGroup(c *gin.Context) {
	var req spaceGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.SetSpaceGroup(c.Request.Context(), c.Param("project"), c.Param("phase"), req.Symbol, req.Setting)
	s.resultOnly(c, res, err)
}

// addAtom adds the default site when the body is empty.
func (s *Server) addAtom(c *gin.Context) {
	var spec *structure.AtomSpec
	if c.Request.ContentLength != 0 {
		var req atomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		occ := 1.0
		if req.Occupancy != nil {
			occ = *req.Occupancy
		}
		spec = &structure.AtomSpec{
			Label:     req.Label,
			Specie:    req.Specie,
			Frac:      req.Fract,
			Occupancy: occ,
			ADPType:   req.ADPType,
			Uiso:      req.Uiso,
			Uani:      req.Uani,
		}
	}
	label, res, err := s.svc.AddAtom(c.Request.Context(), c.Param("project"), c.Param("phase"), spec)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, gin.H{"label": label}, res)
}

func (s *Server) duplicateAtom(c *gin.Context) {
	var req duplicateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	label, res, err := s.svc.DuplicateAtom(c.Request.Context(), c.Param("project"), c.Param("phase"), c.Param("label"), req.Label)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, gin.H{"label": label}, res)
}

func (s *Server) setADPType(c *gin.Context) {
	var req adpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.SetADPType(c.Request.Context(), c.Param("project"), c.Param("phase"), c.Param("label"), req.Type)
	s.resultOnly(c, res, err)
}

func (s *Server) removeAtom(c *gin.Context) {
	res, err := s.svc.RemoveAtom(c.Request.Context(), c.Param("project"), c.Param("phase"), c.Param("label"))
	s.resultOnly(c, res, err)
}

func (s *Server) addExperiment(c *gin.Context) {
	var req experimentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	rec, res, err := s.svc.AddExperiment(c.Request.Context(), c.Param("project"), req.ID, req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, rec, res)
}

func (s *Server) removeExperiment(c *gin.Context) {
	res, err := s.svc.RemoveExperiment(c.Request.Context(), c.Param("project"), c.Param("exp"))
	s.resultOnly(c, res, err)
}

// importXYE takes the XYE table as the request body.
func (s *Server) importXYE(c *gin.Context) {
	res, err := s.svc.ImportXYE(c.Request.Context(), c.Param("project"), c.Param("exp"), c.Request.Body)
	s.resultOnly(c, res, err)
}

func (s *Server) clearMeasured(c *gin.Context) {
	res, err := s.svc.ClearMeasured(c.Request.Context(), c.Param("project"), c.Param("exp"))
	s.resultOnly(c, res, err)
}

func (s *Server) setRange(c *gin.Context) {
	var req domain.SimulationRange
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.SetRange(c.Request.Context(), c.Param("project"), c.Param("exp"), req)
	s.resultOnly(c, res, err)
}

func (s *Server) linkPhase(c *gin.Context) {
	res, err := s.svc.LinkPhase(c.Request.Context(), c.Param("project"), c.Param("exp"), c.Param("phase"))
	s.resultOnly(c, res, err)
}

func (s *Server) unlinkPhase(c *gin.Context) {
	res, err := s.svc.UnlinkPhase(c.Request.Context(), c.Param("project"), c.Param("exp"), c.Param("phase"))
	s.resultOnly(c, res, err)
}

func (s *Server) addBackgroundPoint(c *gin.Context) {
	var req backgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, res, err := s.svc.AddBackgroundPoint(c.Request.Context(), c.Param("project"), c.Param("exp"), *req.X, req.Intensity)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusCreated, gin.H{"parameter": id}, res)
}

// removeBackgroundPoint takes the anchor position from ?x=.
func (s *Server) removeBackgroundPoint(c *gin.Context) {
	x, err := strconv.ParseFloat(c.Query("x"), 64)
	if err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.RemoveBackgroundPoint(c.Request.Context(), c.Param("project"), c.Param("exp"), x)
	s.resultOnly(c, res, err)
}

func (s *Server) calculate(c *gin.Context) {
	calc, err := s.svc.Calculate(c.Request.Context(), c.Param("project"), c.Param("exp"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": calc})
}

func (s *Server) calculateAll(c *gin.Context) {
	list, err := s.svc.CalculateAll(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// listSpaceGroups serves the space-group table, optionally narrowed to one
// crystal system with ?system=.
func (s *Server) listSpaceGroups(c *gin.Context) {
	systems := symmetry.Systems()
	if q := c.Query("system"); q != "" {
		sys := symmetry.CrystalSystem(strings.ToLower(q))
		if len(symmetry.Numbers(sys)) == 0 {
			s.fail(c, domain.Newf(domain.CodeInvalidSpaceGroup, q, "unknown crystal system"))
			return
		}
		systems = []symmetry.CrystalSystem{sys}
	}
	var out []spaceGroupInfo
	for _, sys := range systems {
		for _, n := range symmetry.Numbers(sys) {
			for _, g := range symmetry.Settings(n) {
				out = append(out, spaceGroupInfo{Number: g.Number, Symbol: g.Symbol, Setting: g.Setting, System: sys, Hall: g.Hall})
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
