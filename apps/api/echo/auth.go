package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

const (
	jwtContextKey    = "deviceToken"
	deviceIDHeader   = "X-Device-ID"
	deviceAudience   = "Kiosk"
	jwtSigningMethod = middleware.AlgorithmHS256
)

// Claims represents the authorization claims of a registered kiosk device.
type Claims struct {
	jwt.StandardClaims
	DeviceName string `json:"device_name,omitempty"`
}

func newAppJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: jwtSigningMethod,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// GetDeviceClaims builds the claims embedded in a device token.
func GetDeviceClaims(conf *core.Config, deviceID, deviceName string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   deviceID,
			Audience:  deviceAudience,
			ExpiresAt: now.Add(conf.Server.DeviceTokenExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		DeviceName: deviceName,
	}
}

// GenerateToken generates a signed JWT token string representing the device Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(jwtSigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextDeviceID identifies the calling kiosk, keying the attempt
// limiter.
func getContextDeviceID(ctx echo.Context) string {
	if claims, err := getContextClaims(ctx); err == nil {
		return claims.Subject
	}
	return ctx.Request().Header.Get(deviceIDHeader)
}

// Device registration: a kiosk announces itself once and receives a signed
// token for all subsequent calls.

type deviceApi struct {
	conf *core.Config
}

func registerDeviceAPI(g *echo.Group, conf *core.Config) {
	api := deviceApi{conf: conf}

	dg := g.Group("/devices")
	dg.POST("/register", api.register)
}

type (
	DeviceRegistration struct {
		DeviceID   string `json:"device_id"`
		DeviceName string `json:"device_name" validate:"required"`
	}

	DeviceRegistrationResponse struct {
		DeviceID  string    `json:"device_id"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
)

func (api *deviceApi) register(ctx echo.Context) error {
	var data DeviceRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeviceRegistration")
	}
	data.DeviceName = core.CleanString(data.DeviceName)
	if data.DeviceName == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "device_name", Error: "this field is required"})
	}
	if data.DeviceID == "" {
		data.DeviceID = uuid.NewString()
	}

	claims := GetDeviceClaims(api.conf, data.DeviceID, data.DeviceName)
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating device token")
	}

	return ctx.JSON(http.StatusCreated, DeviceRegistrationResponse{
		DeviceID:  data.DeviceID,
		Token:     token,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	})
}
