package atlas

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// The Atlas Admin API authenticates programmatic access with HTTP digest
// (RFC 7616, MD5). The transport sends the request unauthenticated first and
// answers the 401 challenge, which is how digest is meant to be spoken.
type digestTransport struct {
	username string
	password string
	next     http.RoundTripper
}

func newDigestTransport(username, password string, next http.RoundTripper) *digestTransport {
	return &digestTransport{
		username: username,
		password: password,
		next:     next,
	}
}

func (t *digestTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	// The body has to be replayable for the authenticated retry.
	var body []byte
	if request.Body != nil {
		var err error
		body, err = io.ReadAll(request.Body)
		if err != nil {
			return nil, err
		}
		request.Body = io.NopCloser(bytes.NewReader(body))
	}

	response, err := t.next.RoundTrip(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusUnauthorized {
		return response, nil
	}

	challenge := response.Header.Get("WWW-Authenticate")
	if !strings.HasPrefix(challenge, "Digest ") {
		return response, nil
	}

	io.Copy(io.Discard, response.Body)
	response.Body.Close()

	retry := request.Clone(request.Context())
	if body != nil {
		retry.Body = io.NopCloser(bytes.NewReader(body))
	}

	authorization, err := t.answer(challenge, retry.Method, retry.URL.RequestURI())
	if err != nil {
		return nil, err
	}
	retry.Header.Set("Authorization", authorization)

	return t.next.RoundTrip(retry)
}

func (t *digestTransport) answer(challenge, method, uri string) (string, error) {
	params := parseChallenge(challenge)
	realm := params["realm"]
	nonce := params["nonce"]
	qop := params["qop"]

	if nonce == "" {
		return "", fmt.Errorf("digest challenge without nonce: %q", challenge)
	}

	cnonceBytes := make([]byte, 8)
	if _, err := rand.Read(cnonceBytes); err != nil {
		return "", err
	}
	cnonce := hex.EncodeToString(cnonceBytes)
	nc := "00000001"

	ha1 := md5Hex(t.username + ":" + realm + ":" + t.password)
	ha2 := md5Hex(method + ":" + uri)

	var response string
	if strings.Contains(qop, "auth") {
		qop = "auth"
		response = md5Hex(strings.Join([]string{ha1, nonce, nc, cnonce, qop, ha2}, ":"))
	} else {
		response = md5Hex(ha1 + ":" + nonce + ":" + ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, realm=%q, nonce=%q, uri=%q, response=%q`,
		t.username, realm, nonce, uri, response)
	if qop == "auth" {
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce=%q`, qop, nc, cnonce)
	}
	if opaque := params["opaque"]; opaque != "" {
		fmt.Fprintf(&b, `, opaque=%q`, opaque)
	}
	if algorithm := params["algorithm"]; algorithm != "" {
		fmt.Fprintf(&b, `, algorithm=%s`, algorithm)
	}

	return b.String(), nil
}

func parseChallenge(challenge string) map[string]string {
	params := map[string]string{}
	challenge = strings.TrimPrefix(challenge, "Digest ")
	for _, part := range strings.Split(challenge, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		params[key] = strings.Trim(value, `"`)
	}
	return params
}

func md5Hex(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}
