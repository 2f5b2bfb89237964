package qrcode

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/angelmondragon/sealcard-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.QRCodeConfig {
	return config.QRCodeConfig{
		BaseURL:           "http://qr.test/v1/create-qr-code/",
		Size:              200,
		PublicCardBaseURL: "https://cards.test/c/",
		Verify:            true,
	}
}

func TestNewClientRequiresURLs(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = " "
	if _, err := NewClient(cfg); !errors.Is(err, errBaseURLRequired) {
		t.Fatalf("expected base url error, got %v", err)
	}
	cfg = testConfig()
	cfg.PublicCardBaseURL = ""
	if _, err := NewClient(cfg); !errors.Is(err, errPublicURLRequired) {
		t.Fatalf("expected public url error, got %v", err)
	}
}

func TestCardQRBuildsAndVerifies(t *testing.T) {
	var captured *url.URL
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req.URL
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("png")),
			Header:     http.Header{"Content-Type": []string{"image/png"}},
		}, nil
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	got, err := client.CardQR(context.Background(), "CAFE01", "AB12CD34")
	if err != nil {
		t.Fatalf("card qr: %v", err)
	}
	if captured == nil || captured.String() != got {
		t.Fatalf("expected verification request to %q, got %v", got, captured)
	}
	if captured.Query().Get("size") != "200x200" {
		t.Fatalf("unexpected size %q", captured.Query().Get("size"))
	}
	if captured.Query().Get("data") != "https://cards.test/c/CAFE01/AB12CD34" {
		t.Fatalf("unexpected data %q", captured.Query().Get("data"))
	}
}

func TestProgramQRSkipsVerificationWhenDisabled(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", req.URL)
		return nil, nil
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}), WithVerify(false))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := client.ProgramQR(context.Background(), "CAFE01")
	if err != nil {
		t.Fatalf("program qr: %v", err)
	}
	if !strings.HasPrefix(got, "http://qr.test/v1/create-qr-code/?") {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestRenderFailureIsDependencyError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("upstream down")),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ProgramQR(context.Background(), "CAFE01")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCardLinkRejectsBlankSegments(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.CardLink("CAFE01", " "); !errors.Is(err, errPayloadSegmentBlank) {
		t.Fatalf("expected blank segment error, got %v", err)
	}
}
