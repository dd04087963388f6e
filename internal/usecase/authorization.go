package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
)

var (
	// ErrAuthenticationRequired denies anonymous access to protected paths.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrAccessDenied denies an authenticated principal the requested path.
	ErrAccessDenied = errors.New("access denied")
)

// PathParams holds the values captured by {name} segments in a rule pattern.
type PathParams map[string]string

// Int64 parses a captured segment as a numeric identifier.
func (p PathParams) Int64(name string) (int64, bool) {
	raw, ok := p[name]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// OwnershipCheck decides whether the principal may touch the resource the
// captured path parameters identify. It runs only after the role gate.
type OwnershipCheck func(ctx context.Context, principal *domain.Principal, params PathParams) (bool, error)

// Rule binds a path pattern to an access requirement. Patterns use Ant-style
// segments: "*" matches one segment, "**" matches any tail, "{name}"
// captures one segment.
type Rule struct {
	Pattern string
	// Method restricts the rule to one HTTP method; empty matches all.
	Method string
	// Public grants access without authentication.
	Public bool
	// Roles restricts access to the listed roles; empty means any
	// authenticated principal.
	Roles []domain.Role
	// Owns is an optional resource-level check evaluated after Roles.
	Owns OwnershipCheck
}

// AccessPolicy evaluates rules in declaration order; the first rule whose
// pattern and method match decides the request. Paths no rule matches
// require an authenticated principal.
type AccessPolicy struct {
	rules  []Rule
	logger *zap.Logger
}

// NewAccessPolicy constructs a policy over an ordered rule table.
func NewAccessPolicy(rules []Rule, logger *zap.Logger) *AccessPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessPolicy{rules: rules, logger: logger}
}

// Decide returns nil when access is granted, ErrAuthenticationRequired when
// the path needs a principal and none is present, and ErrAccessDenied when
// the principal does not satisfy the matched rule.
func (p *AccessPolicy) Decide(ctx context.Context, principal *domain.Principal, method, path string) error {
	for i := range p.rules {
		rule := &p.rules[i]
		if rule.Method != "" && rule.Method != method {
			continue
		}
		params, ok := MatchPath(rule.Pattern, path)
		if !ok {
			continue
		}
		return p.apply(ctx, rule, principal, params, method, path)
	}

	if !principal.IsAuthenticated() {
		return ErrAuthenticationRequired
	}
	return nil
}

func (p *AccessPolicy) apply(ctx context.Context, rule *Rule, principal *domain.Principal, params PathParams, method, path string) error {
	if rule.Public {
		return nil
	}
	if !principal.IsAuthenticated() {
		return ErrAuthenticationRequired
	}

	if len(rule.Roles) > 0 && !roleAllowed(rule.Roles, principal.Role) {
		p.logger.Debug("role gate denied",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("role", principal.Role.String()),
		)
		return ErrAccessDenied
	}

	if rule.Owns != nil {
		owns, err := rule.Owns(ctx, principal, params)
		if err != nil {
			return fmt.Errorf("ownership check for %s %s: %w", method, path, err)
		}
		if !owns {
			p.logger.Debug("ownership denied",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int64("principal_id", principal.ID),
			)
			return ErrAccessDenied
		}
	}

	return nil
}

func roleAllowed(allowed []domain.Role, role domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// MatchPath matches a request path against an Ant-style pattern, returning
// the captured {name} segments.
func MatchPath(pattern, path string) (PathParams, bool) {
	params := PathParams{}
	if matchSegments(splitPath(pattern), splitPath(path), params) {
		return params, true
	}
	return nil, false
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

func matchSegments(pattern, segments []string, params PathParams) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == "**" {
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(segments); i++ {
				if matchSegments(pattern[1:], segments[i:], params) {
					return true
				}
			}
			return false
		}
		if len(segments) == 0 {
			return false
		}
		if !matchSegment(head, segments[0], params) {
			return false
		}
		pattern, segments = pattern[1:], segments[1:]
	}
	return len(segments) == 0
}

func matchSegment(pattern, segment string, params PathParams) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "{") && strings.HasSuffix(pattern, "}") {
		params[pattern[1:len(pattern)-1]] = segment
		return true
	}
	return pattern == segment
}

// DefaultRules is the production rule table. Order matters: earlier rules
// shadow later ones for the same pattern and method.
func DefaultRules(access *AccessService) []Rule {
	admin := []domain.Role{domain.RoleAdministrador}
	adminProfesor := []domain.Role{domain.RoleAdministrador, domain.RoleProfesor}
	adminProfesorTutor := []domain.Role{domain.RoleAdministrador, domain.RoleProfesor, domain.RoleTutor}

	return []Rule{
		// Public endpoints.
		{Pattern: "/api/auth/login", Method: http.MethodPost, Public: true},
		{Pattern: "/healthz", Method: http.MethodGet, Public: true},
		{Pattern: "/readyz", Method: http.MethodGet, Public: true},
		{Pattern: "/metrics", Method: http.MethodGet, Public: true},
		{Pattern: "/swagger-ui.html", Public: true},
		{Pattern: "/v3/api-docs/**", Public: true},
		{Pattern: "/swagger-ui/**", Public: true},

		// Self access. Any authenticated principal may try; ownership decides.
		{Pattern: "/api/user/{id}", Method: http.MethodGet, Owns: ownsID("id", access.CanViewUser)},
		{Pattern: "/api/profesor/{id}", Method: http.MethodGet, Roles: adminProfesor},
		{Pattern: "/api/tutorlegal/{id}", Method: http.MethodGet, Roles: adminProfesorTutor, Owns: ownsID("id", access.CanAccessTutor)},

		// Administrator endpoints.
		{Pattern: "/api/user/getAll", Method: http.MethodGet, Roles: admin},
		{Pattern: "/api/estudiante/getAll", Method: http.MethodGet, Roles: admin},
		{Pattern: "/api/profesor/add", Method: http.MethodPost, Roles: admin},
		{Pattern: "/api/estudiante/add", Method: http.MethodPost, Roles: admin},
		{Pattern: "/api/tutorlegal/add", Method: http.MethodPost, Roles: admin},
		{Pattern: "/api/user/add", Method: http.MethodPost, Roles: admin},
		{Pattern: "/api/**", Method: http.MethodDelete, Roles: admin},
		{Pattern: "/api/estudiante/update", Method: http.MethodPut, Roles: admin},
		{Pattern: "/api/profesor/update", Method: http.MethodPut, Roles: admin},
		{Pattern: "/api/tutorlegal/update", Method: http.MethodPut, Roles: admin},
		{Pattern: "/api/asistencia/add", Method: http.MethodPost, Roles: admin},
		{Pattern: "/api/asistencia/update/**", Method: http.MethodPatch, Roles: admin},
		{Pattern: "/api/grado/{id}", Method: http.MethodGet, Roles: nil, Owns: ownsID("id", access.CanViewGrade)},
		{Pattern: "/api/grado/**", Method: http.MethodPost, Roles: admin},
		{Pattern: "/api/grado/**", Method: http.MethodGet, Roles: admin},
		{Pattern: "/api/grado/**", Method: http.MethodPatch, Roles: admin},

		// Teacher endpoints. The earlier administrator rule shadows
		// POST /api/asistencia/add; the table mirrors the declared order.
		{Pattern: "/api/asistencia/add", Method: http.MethodPost, Roles: adminProfesor},
		{Pattern: "/api/asistencia/update/{id}", Method: http.MethodPut, Roles: adminProfesor, Owns: ownsID("id", access.CanUpdateAttendance)},
		{Pattern: "/api/asistencia/{id}", Method: http.MethodGet, Roles: adminProfesorTutor, Owns: ownsID("id", access.CanViewAttendance)},
		{Pattern: "/api/asistencia/**", Method: http.MethodGet, Roles: adminProfesor},
		{Pattern: "/api/profesor/**", Method: http.MethodGet, Roles: adminProfesor},
		{Pattern: "/api/tutorlegal/**", Method: http.MethodGet, Roles: adminProfesor},

		// Tutor and student endpoints. The literal filterGrado rule must
		// precede /api/estudiante/{id}, which would otherwise capture it.
		{Pattern: "/api/estudiante/filterGrado", Method: http.MethodGet, Roles: adminProfesorTutor},
		{Pattern: "/api/estudiante/{id}", Method: http.MethodGet, Owns: ownsID("id", access.CanViewStudent)},
		{Pattern: "/api/estudiante/{id}/asistencias", Method: http.MethodGet, Owns: ownsID("id", access.CanViewStudent)},
		{Pattern: "/api/tutorlegal/asistenciaHijo/{id}", Method: http.MethodGet, Roles: adminProfesorTutor, Owns: ownsID("id", access.CanViewStudent)},
		{Pattern: "/api/auth/logout", Method: http.MethodPost},
	}
}

// ownsID adapts an id-based ownership predicate to an OwnershipCheck. A
// non-numeric capture denies rather than errors.
func ownsID(name string, check func(ctx context.Context, principal *domain.Principal, id int64) (bool, error)) OwnershipCheck {
	return func(ctx context.Context, principal *domain.Principal, params PathParams) (bool, error) {
		id, ok := params.Int64(name)
		if !ok {
			return false, nil
		}
		return check(ctx, principal, id)
	}
}
