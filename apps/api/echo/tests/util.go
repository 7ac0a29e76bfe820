package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/checkin"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	conf   *core.Config
	stdSvc *student.Service
	clsSvc *class.Service
	attSvc *attendance.Service
	ckSvc  *checkin.Service
	gate   *checkin.Gate
	kiosk  *checkin.Kiosk
}

func setup(t *testing.T) (Server, *testEnv) {
	t.Helper()

	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Mahudhurio",
		SecretKey: []byte("secret"),
		Server: core.ServerConfig{
			Addr:                       ":0",
			DeviceTokenExpirationDelta: time.Hour,
		},
	}

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}

	// set up services
	stdSvc := student.NewService(inmemdb.NewStudentRepository(db), conf)
	clsSvc := class.NewService(inmemdb.NewClassRepository(db))
	attSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), stdSvc, clsSvc)
	ckSvc, err := checkin.NewService(context.Background(), inmemdb.NewCheckinRepository(db))
	if err != nil {
		t.Fatalf("checkin.NewService() failed: %v", err)
	}
	gate := checkin.NewGate(stdSvc, clsSvc, attSvc, ckSvc, checkin.NewMemLimiter())
	kiosk := checkin.NewKiosk(attSvc, ckSvc, testLogger{t: t})

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	env := &testEnv{
		conf:   conf,
		stdSvc: stdSvc,
		clsSvc: clsSvc,
		attSvc: attSvc,
		ckSvc:  ckSvc,
		gate:   gate,
		kiosk:  kiosk,
	}

	// set up server
	server := NewServer(
		ServerDeps{
			Conf:          conf,
			Logger:        testLogger{t: t},
			StudentSvc:    stdSvc,
			ClassSvc:      clsSvc,
			AttendanceSvc: attSvc,
			CheckinSvc:    ckSvc,
			Gate:          gate,
			Kiosk:         kiosk,
			Validate:      validate,
			Translator:    translator,
		},
	)
	return server, env
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Enable(bool)                           {}
func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Logf("DEBUG: %s %v", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Logf("INFO: %s %v", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Logf("WARN: %s %v", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Logf("ERROR: %s %v", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatalf("FATAL: %s %v", msg, args) }

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config) string {
	t.Helper()
	claims := GetDeviceClaims(conf, "test-device", "Front Desk")
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createStudent(t *testing.T, env *testEnv, name string, active bool) student.Student {
	t.Helper()
	status := student.MembershipActive
	if !active {
		status = student.MembershipFrozen
	}
	std, err := env.stdSvc.Create(context.Background(), student.NewStudent{
		Name:             name,
		BeltLevel:        "blue",
		MembershipStatus: status,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func assignPIN(t *testing.T, env *testEnv, std student.Student, pin string) {
	t.Helper()
	if _, err := env.stdSvc.SetPIN(context.Background(), student.AssignPIN{StudentID: std.ID, PIN: pin}); err != nil {
		t.Fatalf("assignPIN() failed: %v", err)
	}
}

// createClassNow schedules a class whose check-in window contains time.Now.
func createClassNow(t *testing.T, env *testEnv, name string) class.Session {
	t.Helper()
	now := time.Now()
	minute := now.Hour()*60 + now.Minute()
	start := minute - 30
	if start < 0 {
		start = 0
	}
	end := minute + 30
	if end > 1439 {
		end = 1439
	}
	sess, err := env.clsSvc.Create(context.Background(), class.NewSession{
		Name:           name,
		Weekday:        int(now.Weekday()),
		StartMinute:    start,
		EndMinute:      end,
		InstructorName: "Prof. Maalim",
	})
	if err != nil {
		t.Fatalf("createClassNow() failed: %v", err)
	}
	return sess
}

func reserve(t *testing.T, env *testEnv, std student.Student, sess class.Session) {
	t.Helper()
	if _, err := env.clsSvc.Reserve(context.Background(), std.ID, sess.ID); err != nil {
		t.Fatalf("reserve() failed: %v", err)
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if len(tt.wantData) == 0 {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
