package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/formacademy/formacademy-api/internal/middleware"
	"github.com/formacademy/formacademy-api/internal/models"
)

type fakeDashboardSrv struct {
	admin         *models.AdminDashboard
	trainer       *models.TrainerDashboard
	student       *models.StudentDashboard
	err           error
	lastTrainerID string
	lastStudentID string
}

func (f *fakeDashboardSrv) Admin(context.Context) (*models.AdminDashboard, error) {
	return f.admin, f.err
}

func (f *fakeDashboardSrv) Trainer(_ context.Context, trainerID string) (*models.TrainerDashboard, error) {
	f.lastTrainerID = trainerID
	return f.trainer, f.err
}

func (f *fakeDashboardSrv) Student(_ context.Context, studentID string) (*models.StudentDashboard, error) {
	f.lastStudentID = studentID
	return f.student, f.err
}

type fakeRosterExporter struct {
	data     []byte
	filename string
	err      error
	lastID   int64
}

func (f *fakeRosterExporter) CourseRoster(_ context.Context, courseID int64, _ *models.JWTClaims) ([]byte, string, error) {
	f.lastID = courseID
	return f.data, f.filename, f.err
}

func dashboardTestContext(t *testing.T, target string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestDashboardHandlerAdminForbiddenForTrainer(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{}, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/dashboards/admin", &models.JWTClaims{UserID: "trainer-1", Role: models.RoleTrainer})
	handler.Admin(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardHandlerAdminSuccess(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{
		admin: &models.AdminDashboard{TotalUsers: 42, TotalCourses: 7},
	}, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/dashboards/admin", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	handler.Admin(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope dashboardEnvelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(42), envelope.Data["total_users"])
}

func TestDashboardHandlerTrainerUsesCallerIdentity(t *testing.T) {
	service := &fakeDashboardSrv{trainer: &models.TrainerDashboard{}}
	handler := NewDashboardHandler(service, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/dashboards/trainer?trainer_id=someone-else", &models.JWTClaims{UserID: "trainer-1", Role: models.RoleTrainer})
	handler.Trainer(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trainer-1", service.lastTrainerID)
}

func TestDashboardHandlerTrainerAdminCanTarget(t *testing.T) {
	service := &fakeDashboardSrv{trainer: &models.TrainerDashboard{}}
	handler := NewDashboardHandler(service, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/dashboards/trainer?trainer_id=trainer-9", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	handler.Trainer(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trainer-9", service.lastTrainerID)
}

func TestDashboardHandlerTrainerForbiddenForStudent(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{}, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/dashboards/trainer", &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Trainer(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardHandlerStudentSuccess(t *testing.T) {
	service := &fakeDashboardSrv{student: &models.StudentDashboard{}}
	handler := NewDashboardHandler(service, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/dashboards/student", &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-1", service.lastStudentID)
}

func TestDashboardHandlerStudentUnauthorizedWithoutClaims(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{}, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/dashboards/student", nil)
	handler.Student(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerExportRoster(t *testing.T) {
	exporter := &fakeRosterExporter{data: []byte("email;nom\n"), filename: "roster-go-avance.csv"}
	handler := NewDashboardHandler(&fakeDashboardSrv{}, exporter)

	c, rec := dashboardTestContext(t, "/courses/5/roster.csv", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.ExportRoster(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), exporter.lastID)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "roster-go-avance.csv")
	assert.Equal(t, "email;nom\n", rec.Body.String())
}

func TestDashboardHandlerExportRosterBadID(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{}, &fakeRosterExporter{})

	c, rec := dashboardTestContext(t, "/courses/abc/roster.csv", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	handler.ExportRoster(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type dashboardEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
