package main

import (
	"bytes"
	htmltpl "html/template"
	texttpl "text/template"
	"time"

	"github.com/glamqueue/glamqueue/pkg/models"
	"github.com/knadh/stuffbin"
	"github.com/zerodha/logf"
)

const defaultSubject = "Your Verification Code"

// mailTplData is the payload the e-mail subject and body templates are
// rendered with.
type mailTplData struct {
	Email      string
	Code       string
	ExpiryMins int
	Year       int
}

// mailDispatcher compiles the subject and body templates for a
// verification code and pushes the message to the provider.
type mailDispatcher struct {
	provider models.Provider
	subject  *texttpl.Template
	body     *htmltpl.Template
	ttl      time.Duration
	lo       logf.Logger
}

// initDispatcher loads the e-mail templates from the stuffed static
// assets and binds them to the provider.
func initDispatcher(p models.Provider, fs stuffbin.FileSystem, ttl time.Duration, lo logf.Logger) (*mailDispatcher, error) {
	subj := ko.String("mail.subject")
	if subj == "" {
		subj = defaultSubject
	}
	subjTpl, err := texttpl.New("subject").Parse(subj)
	if err != nil {
		return nil, err
	}

	body, err := stuffbin.ParseTemplatesGlob(nil, fs, "/static/*.html")
	if err != nil {
		return nil, err
	}

	return &mailDispatcher{
		provider: p,
		subject:  subjTpl,
		body:     body,
		ttl:      ttl,
		lo:       lo,
	}, nil
}

// Send renders the message and pushes it out.
func (d *mailDispatcher) Send(otp models.OTP) error {
	var (
		subj = &bytes.Buffer{}
		out  = &bytes.Buffer{}

		data = mailTplData{
			Email:      otp.Email,
			Code:       otp.Code,
			ExpiryMins: int(d.ttl.Minutes()),
			Year:       time.Now().Year(),
		}
	)

	if err := d.subject.Execute(subj, data); err != nil {
		return err
	}
	if err := d.body.ExecuteTemplate(out, "email-otp", data); err != nil {
		return err
	}

	d.lo.Debug("sending verification code", "to", otp.Email, "provider", d.provider.ID())
	return d.provider.Push(otp, subj.String(), out.Bytes())
}
