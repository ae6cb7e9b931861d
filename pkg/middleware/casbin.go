package middleware

import (
	"net/http"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/casbin/casbin/v2/util"
	"github.com/labstack/echo/v4"
)

var (
	enforcer     *casbin.Enforcer
	enforcerOnce sync.Once
	enforcerErr  error
)

// casbinModel is the RBAC model. keyMatch2 lets policy objects carry :id
// placeholders for path parameters.
const casbinModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, eft

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act`

// InitCasbinEnforcer initializes the Casbin enforcer singleton from the
// in-code model and the rbac_policy.csv shipped with the binary.
func InitCasbinEnforcer() (*casbin.Enforcer, error) {
	enforcerOnce.Do(func() {
		m, err := model.NewModelFromString(casbinModel)
		if err != nil {
			enforcerErr = err
			return
		}
		adapter := fileadapter.NewAdapter("rbac_policy.csv")
		enforcer, enforcerErr = casbin.NewEnforcer(m, adapter)
		if enforcerErr != nil {
			return
		}
		enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	})
	return enforcer, enforcerErr
}

// CasbinMiddleware authorizes the request's role against the route. The
// admin role inherits every permission via the policy's g rules.
func CasbinMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role == "" {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing role"})
		}

		enf, err := InitCasbinEnforcer()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "RBAC system error"})
		}

		allowed, err := enf.Enforce(role, c.Request().URL.Path, c.Request().Method)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "RBAC system error"})
		}
		if !allowed {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: insufficient permissions"})
		}
		return next(c)
	}
}
