package model

func init() {
	RegisterDomainType("interfaces", func() DomainType {
		return &TemplateDomain{Name: "interfaces", XPath: deviceXPath + "/network/interface/ethernet", Stage: PhaseNetwork, Seq: 10}
	})
	RegisterDomainType("zones", func() DomainType {
		return &TemplateDomain{Name: "zones", XPath: vsysXPath + "/zone", Stage: PhaseNetwork, Seq: 20}
	})
	RegisterDomainType("virtual-router", func() DomainType {
		return &TemplateDomain{Name: "virtual-router", XPath: deviceXPath + "/network/virtual-router/entry[@name='default']", Stage: PhaseNetwork, Seq: 30}
	})
	RegisterDomainType("default-route", func() DomainType {
		return &TemplateDomain{
			Name:  "default-route",
			XPath: deviceXPath + "/network/virtual-router/entry[@name='default']/routing-table/ip/static-route/entry[@name='default_route']",
			Stage: PhaseNetwork,
			Seq:   40,
		}
	})
	RegisterDomainType("security-policy", func() DomainType {
		return &TemplateDomain{Name: "security-policy", XPath: vsysXPath + "/rulebase/security/rules", Stage: PhaseNetwork, Seq: 50}
	})
	RegisterDomainType("source-nat", func() DomainType {
		return &TemplateDomain{Name: "source-nat", XPath: vsysXPath + "/rulebase/nat/rules", Stage: PhaseNetwork, Seq: 60}
	})
}
