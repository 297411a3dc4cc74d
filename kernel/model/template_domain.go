package model

import (
	"bytes"
	"text/template"

	"github.com/pkg/errors"
)

const deviceXPath = "/config/devices/entry[@name='localhost.localdomain']"
const vsysXPath = deviceXPath + "/vsys/entry[@name='vsys1']"

// TemplateDomain renders an operator supplied template into a single request.
// It is skipped when the inventory carries no template for it.
type TemplateDomain struct {
	Name  string
	XPath string
	Stage Phase
	Seq   int
}

// TemplateVars is the data available to every template.
type TemplateVars struct {
	Host       string
	Priority   int
	Preemptive string
	PeerIp     string
	Ha1Ip      string
}

func NewTemplateVars(dev *Device) TemplateVars {
	preemptive := "no"
	if dev.HA.Preemptive {
		preemptive = "yes"
	}
	return TemplateVars{
		Host:       dev.Host,
		Priority:   dev.HA.Priority,
		Preemptive: preemptive,
		PeerIp:     dev.HA.PeerIp,
		Ha1Ip:      dev.HA.Ha1Ip,
	}
}

func (d *TemplateDomain) Label() string {
	return d.Name
}

func (d *TemplateDomain) Phase() Phase {
	return d.Stage
}

func (d *TemplateDomain) Sequence() int {
	return d.Seq
}

func (d *TemplateDomain) Enabled(inv *Inventory) bool {
	_, found := inv.Templates[d.Name]
	return found
}

func (d *TemplateDomain) Requests(dev *Device, inv *Inventory) ([]ConfigRequest, error) {
	text, found := inv.Templates[d.Name]
	if !found {
		return nil, errors.Errorf("no template configured for domain '%s'", d.Name)
	}
	element, err := RenderTemplate(d.Name, text, NewTemplateVars(dev))
	if err != nil {
		return nil, err
	}
	return []ConfigRequest{{XPath: d.XPath, Element: element}}, nil
}

func RenderTemplate(name, text string, vars TemplateVars) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, "unable to parse template '%s'", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", errors.Wrapf(err, "unable to render template '%s'", name)
	}
	return buf.String(), nil
}
