package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/authz"
	"github.com/noah-isme/tahfidz-admin-api/internal/middleware"
	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	"github.com/noah-isme/tahfidz-admin-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
	"github.com/noah-isme/tahfidz-admin-api/pkg/viewstate"
)

const dateLayout = "2006-01-02"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

// actorFromContext names the caller in audit entries.
func actorFromContext(c *gin.Context) string {
	return claimsFromContext(c).Actor()
}

// actorID keys per-user state such as live report views.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil && claims.UserID != "" {
		return claims.UserID
	}
	return "anonymous"
}

// allowStudent rejects guardians reading a student that is not theirs.
func allowStudent(c *gin.Context, studentID string) bool {
	decision := authz.AuthorizeStudent(authz.PrincipalFromClaims(claimsFromContext(c)), studentID)
	if decision.Allowed {
		return true
	}
	response.Error(c, appErrors.Clone(appErrors.ErrForbidden, decision.Reason))
	return false
}

// scopeStudent pins guardian queries to one of their children. A guardian with a single child may
// omit the student; everyone else passes through unchanged.
func scopeStudent(c *gin.Context, studentID *string) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleWali {
		return true
	}
	if *studentID == "" && len(claims.StudentIDs) == 1 {
		*studentID = claims.StudentIDs[0]
	}
	if *studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id required"))
		return false
	}
	return allowStudent(c, *studentID)
}

// isGuardian reports whether the caller is a WALI.
func isGuardian(c *gin.Context) bool {
	claims := claimsFromContext(c)
	return claims != nil && claims.Role == models.RoleWali
}

// ownRows keeps only the rows of the guardian's children. Staff get rows unchanged.
func ownRows[T any](c *gin.Context, rows []T, studentID func(T) string) []T {
	if !isGuardian(c) {
		return rows
	}
	mine := make(map[string]struct{}, len(claimsFromContext(c).StudentIDs))
	for _, id := range claimsFromContext(c).StudentIDs {
		mine[id] = struct{}{}
	}
	kept := make([]T, 0, len(rows))
	for _, row := range rows {
		if _, ok := mine[studentID(row)]; ok {
			kept = append(kept, row)
		}
	}
	return kept
}

// staffOnly rejects guardians on class-wide tools.
func staffOnly(c *gin.Context) bool {
	if !isGuardian(c) {
		return true
	}
	response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "guardians may only view their own children"))
	return false
}

// reportError answers a report request. An incomplete filter is not a failure: the client gets an
// empty list and the notice asking for a selection.
func reportError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrFilterNotReady) {
		response.Empty(c, viewstate.DefaultEmptyNotice)
		return
	}
	response.Error(c, err)
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func invalidQuery(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query")
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must use YYYY-MM-DD")
	}
	return &parsed, nil
}

func dateRangeQuery(c *gin.Context) (from, to *time.Time, err error) {
	if from, err = dateQuery(c, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = dateQuery(c, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func boolQuery(c *gin.Context, key string) *bool {
	switch c.Query(key) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
