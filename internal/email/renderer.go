package email

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/forgespace/notify/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxCommentPreview is the number of runes of a comment quoted in an email.
const maxCommentPreview = 280

// ErrRender marks template execution failures.
var ErrRender = errors.New("render email")

// Renderer turns typed payloads into HTML documents. It holds no mutable
// state and is safe for concurrent use.
type Renderer struct {
	tmpl    *template.Template
	baseURL string
}

type buttonView struct {
	URL   string
	Label string
}

// NewRenderer parses the embedded templates. appBaseURL fills in links a
// payload leaves empty.
func NewRenderer(appBaseURL string) (*Renderer, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"button": func(url, label string) buttonView { return buttonView{URL: url, Label: label} },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse email templates")
	}
	return &Renderer{tmpl: tmpl, baseURL: strings.TrimRight(appBaseURL, "/")}, nil
}

type inviteView struct {
	Subject       string
	InviterName   string
	WorkspaceName string
	RoleLabel     string
	InviteURL     string
	ExpiresAt     string
	SettingsURL   string
}

// RenderInvite renders a workspace_invite email.
func (r *Renderer) RenderInvite(p domain.InvitePayload) (string, error) {
	v := inviteView{
		Subject:       InviteSubject(p),
		InviterName:   p.InviterName,
		WorkspaceName: p.WorkspaceName,
		RoleLabel:     roleLabel(p.Role),
		InviteURL:     p.InviteURL,
		SettingsURL:   r.baseURL + "/settings",
	}
	if p.ExpiresAt != nil {
		v.ExpiresAt = p.ExpiresAt.UTC().Format("January 2, 2006")
	}
	return r.execute("workspace_invite", v)
}

type ideaView struct {
	Subject        string
	Type           string
	ActorName      string
	IdeaTitle      string
	WorkspaceName  string
	IdeaURL        string
	CommentPreview string
	OldPhase       string
	NewPhase       string
	SettingsURL    string
}

// RenderIdeaEvent renders a created, updated, commented or phase_changed
// email.
func (r *Renderer) RenderIdeaEvent(t domain.JobType, p domain.IdeaEventPayload) (string, error) {
	if !t.IsIdeaEvent() {
		return "", errors.Wrapf(domain.ErrInvalidJobType, "%s is not an idea event", t)
	}
	v := ideaView{
		Subject:        IdeaEventSubject(t, p),
		Type:           string(t),
		ActorName:      p.ActorName,
		IdeaTitle:      p.IdeaTitle,
		WorkspaceName:  p.WorkspaceName,
		IdeaURL:        p.IdeaURL,
		CommentPreview: truncate(p.CommentPreview, maxCommentPreview),
		SettingsURL:    r.baseURL + "/settings",
	}
	if p.OldPhase != "" {
		v.OldPhase = p.OldPhase.Label()
	}
	if p.NewPhase != "" {
		v.NewPhase = p.NewPhase.Label()
	}
	if v.IdeaURL == "" {
		v.IdeaURL = r.ideaURL(p.IdeaID)
	}
	return r.execute("idea_event", v)
}

type welcomeView struct {
	Subject      string
	UserName     string
	DashboardURL string
	SettingsURL  string
}

// RenderWelcome renders a welcome email.
func (r *Renderer) RenderWelcome(p domain.WelcomePayload) (string, error) {
	v := welcomeView{
		Subject:      WelcomeSubject(p),
		UserName:     p.UserName,
		DashboardURL: p.DashboardURL,
		SettingsURL:  r.baseURL + "/settings",
	}
	if v.DashboardURL == "" {
		v.DashboardURL = r.baseURL + "/dashboard"
	}
	return r.execute("welcome", v)
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "execute %s template", name), ErrRender)
	}
	return buf.String(), nil
}

func (r *Renderer) ideaURL(id string) string {
	if id == "" {
		return r.baseURL + "/dashboard"
	}
	return r.baseURL + "/ideas/" + id
}

func roleLabel(role domain.Role) string {
	if role == "" {
		return ""
	}
	s := string(role)
	return "a" + articleSuffix(s) + " " + strings.ToUpper(s[:1]) + s[1:]
}

// articleSuffix turns "a" into "an" before a vowel.
func articleSuffix(word string) string {
	switch word[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "n"
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
