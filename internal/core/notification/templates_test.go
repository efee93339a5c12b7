package notification

import (
	"strings"
	"testing"
)

func TestRender_PaymentRequested(t *testing.T) {
	msg, err := Render(KindPaymentRequested, Data{
		Name:        "Saigon Tours",
		Amount:      10000,
		CheckoutURL: "https://pay.payos.vn/web/abc123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "Hồ sơ đã được duyệt - Vui lòng thanh toán" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	for _, want := range []string{"Saigon Tours", "10,000 VNĐ", `href="https://pay.payos.vn/web/abc123"`} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestRender_Activated(t *testing.T) {
	msg, err := Render(KindActivated, Data{Name: "Saigon Tours", DashboardURL: "http://localhost:5173/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "Kích hoạt tài khoản thành công!" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, `href="http://localhost:5173/"`) {
		t.Error("expected dashboard link in body")
	}
}

func TestRender_RejectedHasNoLink(t *testing.T) {
	msg, err := Render(KindRejected, Data{Name: "Saigon Tours", CheckoutURL: "https://should-not-appear"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(msg.HTML, "href=") {
		t.Error("rejected email must not contain a link")
	}
	if !strings.Contains(msg.HTML, "#dc3545") {
		t.Error("rejected email must use the error styling")
	}
}

func TestRender_EscapesName(t *testing.T) {
	msg, err := Render(KindActivated, Data{Name: "<script>alert(1)</script>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("name was not escaped")
	}
}

func TestRender_UnknownKind(t *testing.T) {
	if _, err := Render("welcome_back", Data{}); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
