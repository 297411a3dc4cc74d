package model

import "fmt"

// HAInterfacesDomain switches the dedicated HA ports into HA mode.
type HAInterfacesDomain struct{}

func (d *HAInterfacesDomain) Label() string {
	return "ha-interfaces"
}

func (d *HAInterfacesDomain) Phase() Phase {
	return PhaseHA
}

func (d *HAInterfacesDomain) Sequence() int {
	return 10
}

func (d *HAInterfacesDomain) Enabled(*Inventory) bool {
	return true
}

func (d *HAInterfacesDomain) Requests(_ *Device, inv *Inventory) ([]ConfigRequest, error) {
	var requests []ConfigRequest
	for _, port := range inv.HAPorts() {
		requests = append(requests, ConfigRequest{
			XPath:   fmt.Sprintf("%s/network/interface/ethernet/entry[@name='%s']", deviceXPath, port),
			Element: "<ha/>",
		})
	}
	return requests, nil
}

// HAEnableDomain turns high availability on.
type HAEnableDomain struct{}

func (d *HAEnableDomain) Label() string {
	return "ha-enable"
}

func (d *HAEnableDomain) Phase() Phase {
	return PhaseHA
}

func (d *HAEnableDomain) Sequence() int {
	return 20
}

func (d *HAEnableDomain) Enabled(*Inventory) bool {
	return true
}

func (d *HAEnableDomain) Requests(*Device, *Inventory) ([]ConfigRequest, error) {
	return []ConfigRequest{{
		XPath:   deviceXPath + "/deviceconfig/high-availability",
		Element: "<enabled>yes</enabled>",
	}}, nil
}

func init() {
	RegisterDomainType("ha-interfaces", func() DomainType { return &HAInterfacesDomain{} })
	RegisterDomainType("ha-enable", func() DomainType { return &HAEnableDomain{} })
	RegisterDomainType("ha-group", func() DomainType {
		return &TemplateDomain{Name: "ha-group", XPath: deviceXPath + "/deviceconfig/high-availability/group", Stage: PhaseHA, Seq: 30}
	})
	RegisterDomainType("ha-interface", func() DomainType {
		return &TemplateDomain{Name: "ha-interface", XPath: deviceXPath + "/deviceconfig/high-availability/interface", Stage: PhaseHA, Seq: 40}
	})
}
