// Package notification renders the transactional emails of the partner
// lifecycle. Rendering is pure: it never decides which template applies.
package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind selects a template.
type Kind string

const (
	KindPaymentRequested Kind = "payment_requested"
	KindActivated        Kind = "activated"
	KindRejected         Kind = "rejected"
)

// Data is everything a template may show.
type Data struct {
	Name         string
	Amount       int64  // payment_requested only, in VND
	CheckoutURL  string // payment_requested only
	DashboardURL string // activated only
}

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
}

type entry struct {
	subject string
	body    *template.Template
}

const layout = `<!DOCTYPE html>
<html><body style="font-family:Arial,Helvetica,sans-serif;background:#f4f6f8;padding:24px">
<div style="max-width:560px;margin:auto;background:#fff;border-radius:8px;padding:24px;border-top:4px solid {{template "accent" .}}">
{{template "content" .}}
<p style="color:#888;font-size:12px;margin-top:32px">Travelog Admin</p>
</div></body></html>`

var templates = map[Kind]entry{
	KindPaymentRequested: {
		subject: "Hồ sơ đã được duyệt - Vui lòng thanh toán",
		body: must(`{{define "accent"}}#28a745{{end}}{{define "content"}}
<h3>Chào {{.Name}},</h3>
<p>Hồ sơ đối tác của bạn đã được duyệt. Vui lòng thanh toán phí kích hoạt để bắt đầu sử dụng.</p>
<p>Phí kích hoạt: <b>{{.Amount | vnd}} VNĐ</b>.</p>
<p><a href="{{.CheckoutURL}}" style="background:#28a745;color:#fff;padding:10px 20px;text-decoration:none;border-radius:5px">THANH TOÁN NGAY</a></p>
{{end}}`),
	},
	KindActivated: {
		subject: "Kích hoạt tài khoản thành công!",
		body: must(`{{define "accent"}}#0d6efd{{end}}{{define "content"}}
<h3>Chào mừng {{.Name}}!</h3>
<p>Tài khoản đối tác của bạn đã được kích hoạt.</p>
<p><a href="{{.DashboardURL}}" style="background:#0d6efd;color:#fff;padding:10px 20px;text-decoration:none;border-radius:5px">VÀO TRANG QUẢN LÝ</a></p>
{{end}}`),
	},
	KindRejected: {
		subject: "Thông báo từ chối hồ sơ",
		body: must(`{{define "accent"}}#dc3545{{end}}{{define "content"}}
<h3 style="color:#dc3545">Chào {{.Name}},</h3>
<p style="background:#f8d7da;color:#842029;padding:12px;border-radius:5px">Rất tiếc, hồ sơ của bạn chưa phù hợp với yêu cầu của chúng tôi.</p>
<p>Nếu có thắc mắc, vui lòng phản hồi email này.</p>
{{end}}`),
	},
}

var vndPrinter = message.NewPrinter(language.English)

func must(content string) *template.Template {
	t := template.New("email").Funcs(template.FuncMap{
		"vnd": func(n int64) string { return vndPrinter.Sprintf("%d", n) },
	})
	return template.Must(template.Must(t.Parse(layout)).Parse(content))
}

// Render produces the subject and HTML body for kind.
func Render(kind Kind, data Data) (Message, error) {
	e, ok := templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("notification: unknown template %q", kind)
	}
	var buf bytes.Buffer
	if err := e.body.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("notification: render %s: %w", kind, err)
	}
	return Message{Subject: e.subject, HTML: buf.String()}, nil
}
