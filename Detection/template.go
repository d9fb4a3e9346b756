package Detection

import (
	"strings"
)

// Template code looked up per tenant for technical anomaly mails
const TemplateCodeTechnicalAnomaly = "anomaly_technical"

// Built-in fallback when a tenant has no active template for the code
const (
	defaultSubject = "[{{severity}}] Attendance anomaly: {{employee_name}} on {{session_date}}"
	defaultBody    = `<p>Hello {{manager_name}},</p>
<p>An attendance anomaly was detected for <b>{{employee_name}}</b> on {{session_date}}
and classified as a technical issue.</p>
<ul>
<li>Reason: {{reason}}</li>
<li>Device: {{device_name}}</li>
<li>Detected at: {{detected_at}}</li>
<li>Severity: {{severity}}</li>
</ul>
<p>No action is required from the employee; please verify the device or correct the record.</p>`
)

// Render substitutes {{placeholder}} tokens with plain string
// replacement. Tenant-editable templates carry no executable logic;
// unknown tokens are left as-is.
func Render(body string, values map[string]string) string {
	for key, value := range values {
		body = strings.ReplaceAll(body, "{{"+key+"}}", value)
	}
	return body
}
