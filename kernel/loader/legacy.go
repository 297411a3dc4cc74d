package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/oliveagle/jsonpath"
	"github.com/pkg/errors"
)

// legacyTemplates maps the manifest keys of the older python tooling onto
// configuration domains.
var legacyTemplates = map[string]string{
	"$.urls.pa_ha_config_template":       "ha-group",
	"$.urls.pa_ha_int_template":          "ha-interface",
	"$.urls.pa_interface_template":       "interfaces",
	"$.urls.pa_zone_template":            "zones",
	"$.urls.pa_virtual_router_template":  "virtual-router",
	"$.urls.pa_static_routes_template":   "default-route",
	"$.urls.pa_security_policy_template": "security-policy",
	"$.urls.pa_source_nat_template":      "source-nat",
}

// legacyPlaceholders rewrites python format fields into template actions.
var legacyPlaceholders = map[string]string{
	"device_priority": "{{.Priority}}",
	"preemptive":      "{{.Preemptive}}",
	"peer_ip":         "{{.PeerIp}}",
	"ha1_ip":          "{{.Ha1Ip}}",
	"host":            "{{.Host}}",
}

var placeholderRe = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

type legacyCredential struct {
	Host           string `json:"host"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	DevicePriority string `json:"device_priority"`
	Preemptive     string `json:"preemptive"`
	PeerIp         string `json:"peer_ip"`
	Ha1Ip          string `json:"ha1_ip"`
}

// LoadLegacyManifest converts an automation_urls_pa.json manifest and the
// credential list it references into an inventory. Members without HA values
// in the credential file get the two member lab addressing the manifest was
// written for.
func LoadLegacyManifest(path string) (*model.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read manifest [%s]", path)
	}
	var manifest interface{}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "malformed manifest [%s]", path)
	}
	baseDir := filepath.Dir(path)

	credsPath, err := lookupString(manifest, "$.urls.pa_creds_file")
	if err != nil {
		return nil, err
	}
	creds, err := loadLegacyCredentials(resolve(baseDir, credsPath))
	if err != nil {
		return nil, err
	}

	inv := &model.Inventory{
		Id:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Templates: make(map[string]string),
		Timing:    model.DefaultTiming(),
		// the python tooling disabled verification process wide
		TLS: model.TLSPolicy{InsecureSkipVerify: true},
	}
	for i, c := range creds {
		inv.Devices = append(inv.Devices, legacyDevice(i, c))
	}

	for jpath, domain := range legacyTemplates {
		file, err := lookupString(manifest, jpath)
		if err != nil {
			continue
		}
		text, err := os.ReadFile(resolve(baseDir, file))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read template for domain [%s]", domain)
		}
		inv.Templates[domain] = ConvertLegacyTemplate(string(text))
	}
	return inv, nil
}

func loadLegacyCredentials(path string) ([]legacyCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read credentials [%s]", path)
	}
	var creds []legacyCredential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, errors.Wrapf(err, "malformed credentials [%s]", path)
	}
	if len(creds) == 0 {
		return nil, errors.Errorf("no devices in credentials [%s]", path)
	}
	seen := make(map[string]struct{})
	for _, c := range creds {
		if c.Host == "" {
			return nil, errors.Errorf("credential entry without host in [%s]", path)
		}
		if _, dup := seen[c.Host]; dup {
			return nil, errors.Errorf("duplicate device host [%s]", c.Host)
		}
		seen[c.Host] = struct{}{}
	}
	return creds, nil
}

func legacyDevice(i int, c legacyCredential) *model.Device {
	labPriority := []int{100, 110}
	labAddrs := []string{"1.1.1.1", "1.1.1.2"}

	dev := &model.Device{Host: c.Host, Username: c.Username, Password: c.Password}
	if i < 2 {
		dev.HA = model.HAParams{
			Priority:   labPriority[i],
			Preemptive: i == 0,
			PeerIp:     labAddrs[1-i],
			Ha1Ip:      labAddrs[i],
		}
	}
	if p, err := strconv.Atoi(strings.TrimSpace(c.DevicePriority)); err == nil {
		dev.HA.Priority = p
	}
	if c.Preemptive != "" {
		dev.HA.Preemptive = strings.EqualFold(c.Preemptive, "yes")
	}
	if c.PeerIp != "" {
		dev.HA.PeerIp = c.PeerIp
	}
	if c.Ha1Ip != "" {
		dev.HA.Ha1Ip = c.Ha1Ip
	}
	return dev
}

// ConvertLegacyTemplate turns {field} placeholders into template actions.
// Unknown fields are left untouched.
func ConvertLegacyTemplate(text string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		if action, found := legacyPlaceholders[m[1:len(m)-1]]; found {
			return action
		}
		return m
	})
}

func lookupString(obj interface{}, jpath string) (string, error) {
	res, err := jsonpath.JsonPathLookup(obj, jpath)
	if err != nil {
		return "", errors.Wrapf(err, "manifest lookup [%s]", jpath)
	}
	s, ok := res.(string)
	if !ok || s == "" {
		return "", errors.Errorf("manifest value at [%s] is not a path", jpath)
	}
	return s, nil
}
