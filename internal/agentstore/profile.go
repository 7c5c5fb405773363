package agentstore

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidProfile is returned for a profile that fails validation.
var ErrInvalidProfile = errors.New("agentstore: invalid profile")

// Agent kinds.
const (
	KindGeneral = "general"
	KindSpecial = "special"
)

// WildcardTool grants every tool.
const WildcardTool = "*"

// tools is the catalog of tools an agent may be granted.
var tools = []string{
	"get_current_time",
	"search_web",
	"browse_url",
	"push_live_canvas",
	"sessions_list",
	"sessions_history",
	"sessions_send",
	"list_files",
	"read_file",
	"write_file",
	"create_directory",
	"delete_path",
	"search_files",
	"execute_shell_command",
	"analyze_logs",
}

// Tools returns a copy of the tool catalog.
func Tools() []string {
	return slices.Clone(tools)
}

// KnownTool reports whether name is in the catalog or is the wildcard.
func KnownTool(name string) bool {
	return name == WildcardTool || slices.Contains(tools, name)
}

// Profile is an agent manifest plus its soul text. UpdatedAt is the soul
// file's modification time and is ignored on save.
type Profile struct {
	ID           string   `json:"id" validate:"required,max=80,agentid"`
	Name         string   `json:"name" validate:"required,max=120"`
	Kind         string   `json:"kind" validate:"oneof=general special"`
	Description  string   `json:"description" validate:"max=2000"`
	RoutingHints []string `json:"routingHints" validate:"max=50,dive,required,max=120"`
	AllowedTools []string `json:"allowedTools" validate:"max=300,dive,required,max=120,agenttool"`
	Enabled      bool     `json:"enabled"`
	Soul         string   `json:"soul" validate:"required,max=50000"`
	UpdatedAt    string   `json:"updated_at"`
}

var idPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("agentid", func(fl validator.FieldLevel) bool {
			return idPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("agenttool", func(fl validator.FieldLevel) bool {
			return KnownTool(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Normalize trims text fields and fills defaults in place. The id is
// reduced to its slug.
func (p *Profile) Normalize() {
	p.ID = NormalizeID(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Kind = strings.TrimSpace(p.Kind)
	if p.Kind == "" {
		p.Kind = KindGeneral
	}
	p.Description = strings.TrimSpace(p.Description)
	p.RoutingHints = trimAll(p.RoutingHints)
	p.AllowedTools = trimAll(p.AllowedTools)
	p.Soul = strings.TrimSpace(p.Soul)
}

// Validate normalizes p and checks it. Failures wrap ErrInvalidProfile with
// a message naming the first offending field.
func (p *Profile) Validate() error {
	p.Normalize()
	err := profileValidator().Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, describe(verrs[0]))
	}
	return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s exceeds %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "agentid":
		return "id may only contain a-z, 0-9, _ and -"
	case "agenttool":
		return fmt.Sprintf("allowedTools contains an unknown tool %q; allowed: %s, %s",
			fe.Value(), strings.Join(tools, ", "), WildcardTool)
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
