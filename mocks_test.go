package auth

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// mockRouterContext mocks router.Context for HTTP-level tests.
type mockRouterContext struct {
	mock.Mock
	NextCalled bool
}

func (m *mockRouterContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *mockRouterContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *mockRouterContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *mockRouterContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockRouterContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockRouterContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockRouterContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *mockRouterContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *mockRouterContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *mockRouterContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *mockRouterContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *mockRouterContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *mockRouterContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *mockRouterContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *mockRouterContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *mockRouterContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *mockRouterContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *mockRouterContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *mockRouterContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *mockRouterContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *mockRouterContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *mockRouterContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *mockRouterContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *mockRouterContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *mockRouterContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *mockRouterContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *mockRouterContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *mockRouterContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *mockRouterContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *mockRouterContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *mockRouterContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *mockRouterContext) QueryValues(key string) []string {
	args := m.Called(key)
	return args.Get(0).([]string)
}

func (m *mockRouterContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *mockRouterContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *mockRouterContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *mockRouterContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *mockRouterContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockRouterContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *mockRouterContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockRouterContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	return args.Get(0).(map[string]any)
}

func (m *mockRouterContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	fh, _ := args.Get(0).(*multipart.FileHeader)
	return fh, args.Error(1)
}

func (m *mockRouterContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *mockRouterContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockRouterContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *mockRouterContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *mockRouterContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockRouterContext) RouteParams() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

// testLoginPayload implements LoginPayload.
type testLoginPayload struct {
	Identifier string
	Password   string
	Device     string
}

func (p testLoginPayload) GetIdentifier() string  { return p.Identifier }
func (p testLoginPayload) GetPassword() string    { return p.Password }
func (p testLoginPayload) GetDeviceLabel() string { return p.Device }
