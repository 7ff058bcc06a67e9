package notify

import (
	"strings"
	"time"

	"github.com/osteele/liquid"

	"github.com/leadlab/engage/internal/contact"
)

// Renderer renders the notification HTML through a Liquid template. The
// template trusts its inputs: submission values must be entity-escaped
// before they reach Render.
type Renderer struct {
	engine   *liquid.Engine
	template *liquid.Template
}

// NewRenderer compiles the notification template.
func NewRenderer() (*Renderer, error) {
	engine := liquid.NewEngine()

	// Newlines in the message body become explicit breaks.
	engine.RegisterFilter("nl2br", func(s string) string {
		return strings.ReplaceAll(s, "\n", "<br>")
	})

	tmpl, err := engine.ParseString(notificationTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{engine: engine, template: tmpl}, nil
}

// Render produces the notification HTML for a sanitized submission.
func (r *Renderer) Render(cfg Config, sub contact.Submission, at time.Time) (string, error) {
	bindings := map[string]any{
		"date":            at.Format("Monday, January 2, 2006 15:04"),
		"name":            sub.Name,
		"email":           sub.Email,
		"message":         sub.Message,
		"utm_source":      sub.UTMSource,
		"utm_medium":      sub.UTMMedium,
		"utm_campaign":    sub.UTMCampaign,
		"gclid":           sub.GCLID,
		"fbclid":          sub.FBCLID,
		"msclkid":         sub.MSCLKID,
		"client_id":       sub.ClientID,
		"has_attribution": !sub.Params.Empty(),
		"site_name":       cfg.SiteName,
		"site_url":        cfg.SiteURL,
	}
	out, err := r.template.Render(bindings)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

const notificationTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #0f0f14;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color: #0f0f14; padding: 40px 20px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" style="background: #12121a; border-radius: 16px; overflow: hidden;">
          <tr>
            <td style="background: linear-gradient(135deg, #8b5cf6 0%, #3b82f6 100%); padding: 32px 40px; text-align: center;">
              <h1 style="margin: 0; color: #ffffff; font-size: 24px; font-weight: 700;">New Lead Incoming!</h1>
              <p style="margin: 8px 0 0; color: rgba(255,255,255,0.85); font-size: 14px;">{{ date }}</p>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px 40px;">
              <table width="100%" cellpadding="0" cellspacing="0">
                <tr>
                  <td style="padding-bottom: 24px;">
                    <p style="margin: 0 0 6px; color: #a1a1aa; font-size: 12px; text-transform: uppercase;">From</p>
                    <p style="margin: 0; color: #ffffff; font-size: 20px; font-weight: 600;">{{ name }}</p>
                    <a href="mailto:{{ email }}" style="color: #8b5cf6; font-size: 14px; text-decoration: none;">{{ email }}</a>
                  </td>
                </tr>
                <tr>
                  <td style="background-color: rgba(139, 92, 246, 0.1); border-radius: 12px; padding: 20px; border-left: 4px solid #8b5cf6;">
                    <p style="margin: 0 0 8px; color: #a1a1aa; font-size: 12px; text-transform: uppercase;">Message</p>
                    <p style="margin: 0; color: #e4e4e7; font-size: 15px; line-height: 1.6; white-space: pre-wrap;">{{ message | nl2br }}</p>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          {% if has_attribution %}
          <tr>
            <td style="padding: 0 40px 32px;">
              <table width="100%" cellpadding="0" cellspacing="0" style="background-color: rgba(255,255,255,0.03); border-radius: 12px; padding: 20px;">
                <tr>
                  <td>
                    <p style="margin: 0 0 16px; color: #a1a1aa; font-size: 12px; text-transform: uppercase;">Attribution Data</p>
                    <table width="100%" cellpadding="0" cellspacing="0">
                      {% if utm_source != "" %}<tr><td style="color: #71717a; font-size: 13px; padding: 4px 0;">Source:</td><td style="color: #e4e4e7; font-size: 13px; padding: 4px 0;">{{ utm_source }}</td></tr>{% endif %}
                      {% if utm_medium != "" %}<tr><td style="color: #71717a; font-size: 13px; padding: 4px 0;">Medium:</td><td style="color: #e4e4e7; font-size: 13px; padding: 4px 0;">{{ utm_medium }}</td></tr>{% endif %}
                      {% if utm_campaign != "" %}<tr><td style="color: #71717a; font-size: 13px; padding: 4px 0;">Campaign:</td><td style="color: #e4e4e7; font-size: 13px; padding: 4px 0;">{{ utm_campaign }}</td></tr>{% endif %}
                      {% if gclid != "" %}<tr><td style="color: #71717a; font-size: 13px; padding: 4px 0;">Google Click ID:</td><td style="color: #e4e4e7; font-size: 13px; padding: 4px 0; word-break: break-all;">{{ gclid }}</td></tr>{% endif %}
                      {% if fbclid != "" %}<tr><td style="color: #71717a; font-size: 13px; padding: 4px 0;">Facebook Click ID:</td><td style="color: #e4e4e7; font-size: 13px; padding: 4px 0; word-break: break-all;">{{ fbclid }}</td></tr>{% endif %}
                      {% if msclkid != "" %}<tr><td style="color: #71717a; font-size: 13px; padding: 4px 0;">Microsoft Click ID:</td><td style="color: #e4e4e7; font-size: 13px; padding: 4px 0; word-break: break-all;">{{ msclkid }}</td></tr>{% endif %}
                      {% if client_id != "" %}<tr><td style="color: #71717a; font-size: 13px; padding: 4px 0;">GA Client ID:</td><td style="color: #e4e4e7; font-size: 13px; padding: 4px 0;">{{ client_id }}</td></tr>{% endif %}
                    </table>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          {% endif %}
          <tr>
            <td style="background-color: rgba(0,0,0,0.3); padding: 24px 40px; text-align: center;">
              <p style="margin: 0; color: #71717a; font-size: 12px;">
                Lead captured from <a href="{{ site_url }}" style="color: #8b5cf6; text-decoration: none;">{{ site_name }}</a>
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`
