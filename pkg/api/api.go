// Package api implements the REST API for parsing, solving and sampling
// polynomial expressions and for managing named equations.
package api

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lemonberrylabs/polycalc/pkg/expr"
	"github.com/lemonberrylabs/polycalc/pkg/graph"
	"github.com/lemonberrylabs/polycalc/pkg/manifest"
	"github.com/lemonberrylabs/polycalc/pkg/ops"
	"github.com/lemonberrylabs/polycalc/pkg/poly"
	"github.com/lemonberrylabs/polycalc/pkg/solver"
	"github.com/lemonberrylabs/polycalc/pkg/store"
	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app    *fiber.App
	store  *store.Store
	set    ops.Set
	logger *zap.Logger
}

// New creates a new API server. Expressions are evaluated with set.
func New(s *store.Store, set ops.Set, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		store:  s,
		set:    set,
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(srv.logRequest)

	// Expressions API
	app.Post("/v1/expressions\\:parse", srv.parseExpression)
	app.Post("/v1/expressions\\:solve", srv.solveExpression)
	app.Post("/v1/expressions\\:evaluate", srv.evaluateExpression)
	app.Post("/v1/expressions\\:sample", srv.sampleExpression)

	// Equations API
	app.Post("/v1/equations", srv.createEquation)
	app.Get("/v1/equations", srv.listEquations)
	app.Post("/v1/equations/:equation\\:solve", srv.solveEquation)
	app.Get("/v1/equations/:equation/points", srv.equationPoints)
	app.Get("/v1/equations/:equation", srv.getEquation)
	app.Patch("/v1/equations/:equation", srv.updateEquation)
	app.Delete("/v1/equations/:equation", srv.deleteEquation)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)))
	return err
}

// --- Expression Handlers ---

type expressionRequest struct {
	Expression string   `json:"expression"`
	X          *float64 `json:"x"`
	XMin       *float64 `json:"xMin"`
	XMax       *float64 `json:"xMax"`
	Samples    int      `json:"samples"`
}

func (s *Server) parseExpression(c *fiber.Ctx) error {
	var req expressionRequest
	if err := bindExpression(c, &req); err != nil {
		return invalidArgument(c, err)
	}

	p, err := expr.ParseWith(req.Expression, s.set)
	if err != nil {
		return algebraError(c, err)
	}
	tree, err := expr.ParseTree(req.Expression)
	if err != nil {
		return algebraError(c, err)
	}

	return c.JSON(fiber.Map{
		"polynomial":   p.String(),
		"degree":       p.Degree(),
		"coefficients": p.Coefficients(),
		"tree":         tree.String(),
	})
}

func (s *Server) solveExpression(c *fiber.Ctx) error {
	var req expressionRequest
	if err := bindExpression(c, &req); err != nil {
		return invalidArgument(c, err)
	}

	p, err := expr.ParseWith(req.Expression, s.set)
	if err != nil {
		return algebraError(c, err)
	}
	sol, err := solver.Solve(p)
	if err != nil {
		return algebraError(c, err)
	}
	return c.JSON(solutionToJSON(sol))
}

func (s *Server) evaluateExpression(c *fiber.Ctx) error {
	var req expressionRequest
	if err := bindExpression(c, &req); err != nil {
		return invalidArgument(c, err)
	}
	if req.X == nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "x is required")
	}

	p, err := expr.ParseWith(req.Expression, s.set)
	if err != nil {
		return algebraError(c, err)
	}
	return c.JSON(fiber.Map{
		"polynomial": p.String(),
		"x":          *req.X,
		"value":      jsonFloat(p.Evaluate(*req.X)),
	})
}

func (s *Server) sampleExpression(c *fiber.Ctx) error {
	var req expressionRequest
	if err := bindExpression(c, &req); err != nil {
		return invalidArgument(c, err)
	}

	p, err := expr.ParseWith(req.Expression, s.set)
	if err != nil {
		return algebraError(c, err)
	}

	xMin, xMax, n := graph.DefaultXMin, graph.DefaultXMax, graph.DefaultSamples
	if req.XMin != nil {
		xMin = *req.XMin
	}
	if req.XMax != nil {
		xMax = *req.XMax
	}
	if req.Samples != 0 {
		n = req.Samples
	}
	return s.writePoints(c, p, xMin, xMax, n)
}

// bindExpression decodes the request body and enforces the expression
// length limit.
func bindExpression(c *fiber.Ctx, req *expressionRequest) error {
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return checkLength(req.Expression)
}

// --- Equation Handlers ---

type equationRequest struct {
	Expression  string `json:"expression"`
	Description string `json:"description"`
}

func (s *Server) createEquation(c *fiber.Ctx) error {
	var req equationRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Expression == "" {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "expression is required")
	}
	if err := checkLength(req.Expression); err != nil {
		return invalidArgument(c, err)
	}

	p, err := expr.ParseWith(req.Expression, s.set)
	if err != nil {
		return algebraError(c, err)
	}

	eq, err := s.store.CreateEquation(c.Query("equationId"), req.Expression, p, req.Description)
	if err != nil {
		return storeError(c, err)
	}
	s.logger.Info("equation created", zap.String("name", eq.Name))
	return c.JSON(equationToJSON(eq))
}

func (s *Server) getEquation(c *fiber.Ctx) error {
	eq, err := s.store.GetEquation(c.Params("equation"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(equationToJSON(eq))
}

func (s *Server) listEquations(c *fiber.Ctx) error {
	equations := s.store.ListEquations()

	items := make([]fiber.Map, len(equations))
	for i, eq := range equations {
		items[i] = equationToJSON(eq)
	}
	return c.JSON(fiber.Map{
		"equations": items,
	})
}

func (s *Server) updateEquation(c *fiber.Ctx) error {
	name := c.Params("equation")

	var req equationRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("invalid request body: %v", err))
	}

	existing, err := s.store.GetEquation(name)
	if err != nil {
		return storeError(c, err)
	}

	expression, p := existing.Expression, existing.Polynomial
	if req.Expression != "" {
		if err := checkLength(req.Expression); err != nil {
			return invalidArgument(c, err)
		}
		p, err = expr.ParseWith(req.Expression, s.set)
		if err != nil {
			return algebraError(c, err)
		}
		expression = req.Expression
	}

	eq, err := s.store.UpdateEquation(name, expression, p, req.Description)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(equationToJSON(eq))
}

func (s *Server) deleteEquation(c *fiber.Ctx) error {
	name := c.Params("equation")
	if err := s.store.DeleteEquation(name); err != nil {
		return storeError(c, err)
	}
	s.logger.Info("equation deleted", zap.String("name", name))
	return c.JSON(fiber.Map{})
}

func (s *Server) solveEquation(c *fiber.Ctx) error {
	eq, err := s.store.GetEquation(c.Params("equation"))
	if err != nil {
		return storeError(c, err)
	}
	sol, err := solver.Solve(eq.Polynomial)
	if err != nil {
		return algebraError(c, err)
	}
	result := solutionToJSON(sol)
	result["equation"] = eq.Name
	return c.JSON(result)
}

func (s *Server) equationPoints(c *fiber.Ctx) error {
	eq, err := s.store.GetEquation(c.Params("equation"))
	if err != nil {
		return storeError(c, err)
	}
	return s.writePoints(c,
		eq.Polynomial,
		c.QueryFloat("xMin", graph.DefaultXMin),
		c.QueryFloat("xMax", graph.DefaultXMax),
		c.QueryInt("samples", graph.DefaultSamples))
}

func (s *Server) writePoints(c *fiber.Ctx, p poly.Polynomial, xMin, xMax float64, n int) error {
	points, err := graph.Sample(p, xMin, xMax, n)
	if err != nil {
		return invalidArgument(c, err)
	}

	items := make([]fiber.Map, len(points))
	for i, pt := range points {
		items[i] = fiber.Map{"x": pt.X, "y": jsonFloat(pt.Y)}
	}
	result := fiber.Map{
		"polynomial": p.String(),
		"points":     items,
	}
	if lo, hi, ok := graph.Range(points); ok {
		result["yMin"] = lo
		result["yMax"] = hi
	}
	return c.JSON(result)
}

// --- Directory Loading ---

// LoadDir reads every .yaml and .yml manifest in dir and stores the
// equations it declares. Files and equations that fail are logged and
// skipped.
func (s *Server) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading equations directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			s.logger.Warn("could not read manifest", zap.String("file", name), zap.Error(err))
			continue
		}
		m, err := manifest.Parse(data)
		if err != nil {
			s.logger.Warn("could not parse manifest", zap.String("file", name), zap.Error(err))
			continue
		}

		for _, def := range m.Equations {
			if len(def.Expression) > expr.MaxExpressionLength {
				s.logger.Warn("expression too long",
					zap.String("file", name), zap.String("id", def.ID))
				continue
			}
			p, err := expr.ParseWith(def.Expression, s.set)
			if err != nil {
				s.logger.Warn("invalid expression",
					zap.String("file", name), zap.String("id", def.ID), zap.Error(err))
				continue
			}
			eq, err := s.store.CreateEquation(def.ID, def.Expression, p, def.Description)
			if err != nil {
				s.logger.Warn("could not store equation",
					zap.String("file", name), zap.String("id", def.ID), zap.Error(err))
				continue
			}
			loaded++
			s.logger.Debug("loaded equation", zap.String("name", eq.Name), zap.String("file", name))
		}
	}

	s.logger.Info("loaded equations", zap.Int("count", loaded), zap.String("dir", dir))
	return nil
}

// --- Helpers ---

func writeError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func invalidArgument(c *fiber.Ctx, err error) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
}

func checkLength(expression string) error {
	if len(expression) > expr.MaxExpressionLength {
		return fmt.Errorf("expression exceeds maximum length of %d characters", expr.MaxExpressionLength)
	}
	return nil
}

// algebraError writes err with its kind and position. Unsupported
// equations are FAILED_PRECONDITION; every other algebra failure is an
// invalid argument.
func algebraError(c *fiber.Ctx, err error) error {
	var ae *types.AlgebraError
	if !errors.As(err, &ae) {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}

	status := "INVALID_ARGUMENT"
	if ae.Kind == types.KindUnsupported {
		status = "FAILED_PRECONDITION"
	}
	body := fiber.Map{
		"code":    fiber.StatusBadRequest,
		"message": ae.Message,
		"status":  status,
		"kind":    string(ae.Kind),
	}
	if ae.Pos >= 0 {
		body["position"] = ae.Pos
	}
	if ae.Token != "" {
		body["token"] = ae.Token
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": body})
}

func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return writeError(c, fiber.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, store.ErrInvalidID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

// jsonFloat returns nil for values JSON cannot represent.
func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func solutionToJSON(sol solver.Solution) fiber.Map {
	result := fiber.Map{
		"solution": sol.String(),
		"kind":     string(sol.Kind),
	}
	if sol.Kind == solver.ComplexPair {
		result["real"] = sol.Real
		result["imag"] = sol.Imag
	} else {
		result["roots"] = sol.Roots
	}
	return result
}

func equationToJSON(eq store.Equation) fiber.Map {
	result := fiber.Map{
		"name":       eq.Name,
		"expression": eq.Expression,
		"polynomial": eq.Polynomial.String(),
		"degree":     eq.Polynomial.Degree(),
		"revisionId": eq.RevisionID,
		"createTime": eq.CreateTime.Format(time.RFC3339),
		"updateTime": eq.UpdateTime.Format(time.RFC3339),
	}
	if eq.Description != "" {
		result["description"] = eq.Description
	}
	if strings.Contains(eq.Expression, "=") {
		if sol, err := solver.Solve(eq.Polynomial); err == nil {
			result["solution"] = sol.String()
		}
	}
	return result
}
