/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package awssign

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-logr/logr"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

const assumeRoleResponse = `<AssumeRoleResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
  <AssumeRoleResult>
    <Credentials>
      <AccessKeyId>ASIA_ASSUMED</AccessKeyId>
      <SecretAccessKey>assumed-secret</SecretAccessKey>
      <SessionToken>assumed-token</SessionToken>
      <Expiration>2026-10-18T12:15:00Z</Expiration>
    </Credentials>
    <AssumedRoleUser>
      <Arn>arn:aws:sts::123456789012:assumed-role/reader/console-broker</Arn>
      <AssumedRoleId>AROA:console-broker</AssumedRoleId>
    </AssumedRoleUser>
  </AssumeRoleResult>
  <ResponseMetadata><RequestId>req-1</RequestId></ResponseMetadata>
</AssumeRoleResponse>`

const accessDeniedResponse = `<ErrorResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
  <Error>
    <Type>Sender</Type>
    <Code>AccessDenied</Code>
    <Message>User is not authorized to perform: sts:AssumeRole</Message>
  </Error>
  <RequestId>req-2</RequestId>
</ErrorResponse>`

// fakeSTS records AssumeRole calls and answers with a fixed status.
type fakeSTS struct {
	mu       sync.Mutex
	status   int
	forms    []map[string]string
	authzHdr []string
}

func (f *fakeSTS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	f.mu.Lock()
	f.forms = append(f.forms, form)
	f.authzHdr = append(f.authzHdr, r.Header.Get("Authorization"))
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml")
	if status == http.StatusOK {
		_, _ = w.Write([]byte(assumeRoleResponse))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(accessDeniedResponse))
}

func newFakeSTS(t *testing.T, status int) (*fakeSTS, string) {
	t.Helper()
	f := &fakeSTS{status: status}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server.URL
}

func TestSTSAssumer_AssumeRole(t *testing.T) {
	fake, endpoint := newFakeSTS(t, http.StatusOK)
	a := NewSTSAssumer(endpoint, logr.Discard())

	base := aws.Credentials{AccessKeyID: "AKIA_BASE", SecretAccessKey: "base-secret"}
	creds, err := a.AssumeRole(context.Background(), base, "us-east-1", "arn:aws:iam::123456789012:role/reader")
	if err != nil {
		t.Fatalf("AssumeRole() error = %v", err)
	}

	if creds.AccessKeyID != "ASIA_ASSUMED" || creds.SecretAccessKey != "assumed-secret" || creds.SessionToken != "assumed-token" {
		t.Errorf("AssumeRole() = %+v", creds)
	}
	if !creds.CanExpire || creds.Expires.IsZero() {
		t.Errorf("expiry not recorded: %+v", creds)
	}

	form := fake.forms[0]
	if form["Action"] != "AssumeRole" {
		t.Errorf("Action = %q", form["Action"])
	}
	if form["RoleArn"] != "arn:aws:iam::123456789012:role/reader" {
		t.Errorf("RoleArn = %q", form["RoleArn"])
	}
	if form["DurationSeconds"] != "900" {
		t.Errorf("DurationSeconds = %q, want 900", form["DurationSeconds"])
	}
	if !strings.HasPrefix(form["RoleSessionName"], SessionNamePrefix+"-") {
		t.Errorf("RoleSessionName = %q", form["RoleSessionName"])
	}
	if !strings.Contains(fake.authzHdr[0], "Credential=AKIA_BASE/") {
		t.Errorf("STS call not signed with base credentials: %q", fake.authzHdr[0])
	}
}

func TestSTSAssumer_FreshSessionNames(t *testing.T) {
	fake, endpoint := newFakeSTS(t, http.StatusOK)
	a := NewSTSAssumer(endpoint, logr.Discard())
	base := aws.Credentials{AccessKeyID: "AKIA_BASE", SecretAccessKey: "base-secret"}

	for i := 0; i < 2; i++ {
		if _, err := a.AssumeRole(context.Background(), base, "us-east-1", "arn:aws:iam::123456789012:role/reader"); err != nil {
			t.Fatalf("AssumeRole() error = %v", err)
		}
	}
	if fake.forms[0]["RoleSessionName"] == fake.forms[1]["RoleSessionName"] {
		t.Error("session name reused across calls")
	}
}

func TestSigner_RoleAssumptionForbidden(t *testing.T) {
	fake, endpoint := newFakeSTS(t, http.StatusForbidden)
	s := newTestSigner(&fakeResolver{creds: baseCreds()}, NewSTSAssumer(endpoint, logr.Discard()))

	signed, err := s.Sign(context.Background(), Request{
		AppID:   "demo",
		Method:  "GET",
		URL:     "https://s3.amazonaws.com/bucket",
		Service: "s3",
		RoleARN: "arn:aws:iam::123456789012:role/reader",
	})

	if signed != nil {
		t.Fatalf("Sign() returned a request signed after a rejected role assumption: %+v", signed.Headers)
	}
	if !infraerrors.IsRoleAssumptionError(err) {
		t.Fatalf("Sign() error = %v, want RoleAssumptionError", err)
	}
	if stage := infraerrors.StageOf(err); stage != infraerrors.StageAssumption {
		t.Errorf("StageOf() = %q, want %q", stage, infraerrors.StageAssumption)
	}
	if !strings.Contains(err.Error(), "AccessDenied") || !strings.Contains(err.Error(), "role/reader") {
		t.Errorf("error %q should name the role and the STS code", err)
	}
	if len(fake.forms) != 1 {
		t.Errorf("STS called %d times, want 1", len(fake.forms))
	}
}

func TestSTSAssumer_TimesOutOnStalledEndpoint(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	a := NewSTSAssumer(server.URL, logr.Discard())
	a.Timeout = 100 * time.Millisecond
	base := aws.Credentials{AccessKeyID: "AKIA_BASE", SecretAccessKey: "base-secret"}

	start := time.Now()
	_, err := a.AssumeRole(context.Background(), base, "us-east-1", "arn:aws:iam::123456789012:role/reader")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("AssumeRole() succeeded against a stalled endpoint")
	}
	if elapsed > 5*time.Second {
		t.Errorf("AssumeRole() returned after %v, want it bounded by Timeout", elapsed)
	}
}

func TestNewSTSAssumer_DefaultTimeout(t *testing.T) {
	a := NewSTSAssumer("", logr.Discard())
	if a.Timeout != DefaultAssumeRoleTimeout {
		t.Errorf("Timeout = %v, want %v", a.Timeout, DefaultAssumeRoleTimeout)
	}
}
