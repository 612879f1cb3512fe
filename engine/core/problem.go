package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProblemDocument models the canonical error envelope for API responses.
type ProblemDocument struct {
	Status  int    `json:"status"            example:"400"`
	Error   string `json:"error"             example:"Bad Request"`
	Details string `json:"details,omitempty" example:"missing 'query' parameter"`
	Code    string `json:"code,omitempty"    example:"invalid_input"`
}

// Problem captures the information returned in an error response.
type Problem struct {
	Status int
	Title  string
	Detail string
	Code   string
}

// NormalizeProblem ensures the provided problem includes canonical defaults.
func NormalizeProblem(problem *Problem) *Problem {
	if problem == nil {
		problem = &Problem{}
	}
	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	return problem
}

// RespondProblem writes the problem document and aborts the request.
func RespondProblem(c *gin.Context, problem *Problem) {
	problem = NormalizeProblem(problem)
	c.AbortWithStatusJSON(problem.Status, ProblemDocument{
		Status:  problem.Status,
		Error:   problem.Title,
		Details: problem.Detail,
		Code:    problem.Code,
	})
}
