package mailer

import (
	"errors"
	"fmt"
	"net"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp 10.0.0.1:587: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify_Transient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{"net timeout", timeoutErr{}},
		{"connection refused", errors.New("dial tcp 10.0.0.1:587: connect: connection refused")},
		{"connection reset", errors.New("read tcp 10.0.0.1:587: connection reset by peer")},
		{"dns temporary", &net.DNSError{Err: "server misbehaving", Name: "smtp.example.com", IsTemporary: true}},
		{"smtp 421", errors.New("421 4.7.0 service not available, closing transmission channel")},
		{"smtp 450", errors.New("450 requested mail action not taken: mailbox busy")},
		{"smtp 451", errors.New("451 requested action aborted: local error in processing")},
		{"smtp 452", errors.New("452 requested action not taken: insufficient system storage")},
	}
	for _, tc := range cases {
		de := Classify(tc.err)
		if !de.Transient {
			t.Fatalf("%s: expected transient, got code=%s", tc.name, de.Code)
		}
		if !IsTransient(de) {
			t.Fatalf("%s: IsTransient should see through the typed error", tc.name)
		}
	}
}

func TestClassify_Permanent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{"auth", errors.New("535 5.7.8 username and password not accepted")},
		{"bad cert", errors.New("x509: certificate signed by unknown authority")},
		{"invalid recipient", errors.New("550 5.1.1 user unknown")},
		{"policy reject", errors.New("554 5.7.1 message rejected due to dmarc policy")},
		{"nxdomain", &net.DNSError{Err: "no such host", Name: "smtp.nope.invalid", IsNotFound: true}},
		{"unknown", errors.New("something odd happened")},
	}
	for _, tc := range cases {
		de := Classify(tc.err)
		if de.Transient {
			t.Fatalf("%s: expected permanent, got code=%s", tc.name, de.Code)
		}
	}
}

func TestClassify_PortIsNotAReplyCode(t *testing.T) {
	t.Parallel()

	// "465" en la dirección no debe confundirse con un reply code; y un
	// error desconocido sobre el puerto 4510 tampoco debe matchear "451".
	de := Classify(errors.New("unexpected response from 10.0.0.1:4510"))
	if de.Transient {
		t.Fatalf("matched a reply code inside an address: %s", de.Code)
	}
}

func TestClassify_WrappedError(t *testing.T) {
	t.Parallel()

	de := Classify(fmt.Errorf("smtp send: %w", errors.New("421 too many connections")))
	if !de.Transient {
		t.Fatalf("wrapped transient error classified as permanent")
	}
}
