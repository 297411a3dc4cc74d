package loader

import (
	"os"
	"path/filepath"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type InventoryYaml struct {
	Inventory InventoryHeaderYaml `yaml:"inventory"`
	Devices   []DeviceYaml        `yaml:"devices" validate:"required,min=1,dive"`
	HA        HAYaml              `yaml:"ha"`
	Templates map[string]string   `yaml:"templates" validate:"dive,keys,required,endkeys,required"`
	TLS       TLSYaml             `yaml:"tls"`
	Timing    TimingYaml          `yaml:"timing"`
	Reporting ReportingYaml       `yaml:"reporting"`
}

type InventoryHeaderYaml struct {
	Id string `yaml:"id" validate:"required"`
}

type DeviceYaml struct {
	Host     string `yaml:"host" validate:"required,hostname_port|hostname_rfc1123"`
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password"`
	HA       struct {
		Priority   int    `yaml:"priority" validate:"gte=0,lte=255"`
		Preemptive bool   `yaml:"preemptive"`
		PeerIp     string `yaml:"peerIp" validate:"omitempty,ip"`
		Ha1Ip      string `yaml:"ha1Ip" validate:"omitempty,ip"`
	} `yaml:"ha"`
}

type HAYaml struct {
	Ports []string `yaml:"ports" validate:"dive,required"`
}

type TLSYaml struct {
	InsecureSkipVerify   bool   `yaml:"insecureSkipVerify"`
	CAFile               string `yaml:"caFile"`
	ClientBundle         string `yaml:"clientBundle"`
	ClientBundlePassword string `yaml:"clientBundlePassword"`
}

type TimingYaml struct {
	CommitBudget     string `yaml:"commitBudget"`
	CommitRoundDelay string `yaml:"commitRoundDelay"`
	SyncAttempts     int    `yaml:"syncAttempts" validate:"gte=0"`
	SyncInterval     string `yaml:"syncInterval"`
	RequestTimeout   string `yaml:"requestTimeout"`
}

type ReportingYaml struct {
	Directory string `yaml:"directory"`
	S3        *struct {
		Bucket string `yaml:"bucket" validate:"required"`
		Region string `yaml:"region" validate:"required"`
		Prefix string `yaml:"prefix"`
	} `yaml:"s3"`
	Influx *struct {
		Url    string `yaml:"url" validate:"required,url"`
		Token  string `yaml:"token"`
		Org    string `yaml:"org" validate:"required"`
		Bucket string `yaml:"bucket" validate:"required"`
	} `yaml:"influx"`
}

// LoadInventory reads an inventory file. Template and certificate paths are
// resolved relative to the file.
func LoadInventory(path string) (*model.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read inventory [%s]", path)
	}
	inv, err := ParseInventory(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid inventory [%s]", path)
	}
	return inv, nil
}

func ParseInventory(data []byte, baseDir string) (*model.Inventory, error) {
	var config InventoryYaml
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, errors.Wrap(err, "unable to parse yaml")
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}

	inv := &model.Inventory{
		Id:        config.Inventory.Id,
		HA:        model.HASettings{Ports: config.HA.Ports},
		Templates: make(map[string]string),
		TLS: model.TLSPolicy{
			InsecureSkipVerify:   config.TLS.InsecureSkipVerify,
			CAFile:               resolve(baseDir, config.TLS.CAFile),
			ClientBundle:         resolve(baseDir, config.TLS.ClientBundle),
			ClientBundlePassword: config.TLS.ClientBundlePassword,
		},
		Reporting: model.Reporting{Directory: resolve(baseDir, config.Reporting.Directory)},
	}

	for _, d := range config.Devices {
		inv.Devices = append(inv.Devices, &model.Device{
			Host:     d.Host,
			Username: d.Username,
			Password: d.Password,
			HA: model.HAParams{
				Priority:   d.HA.Priority,
				Preemptive: d.HA.Preemptive,
				PeerIp:     d.HA.PeerIp,
				Ha1Ip:      d.HA.Ha1Ip,
			},
		})
	}

	for name, file := range config.Templates {
		text, err := os.ReadFile(resolve(baseDir, file))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read template for domain [%s]", name)
		}
		inv.Templates[name] = string(text)
	}

	timing, err := parseTiming(config.Timing)
	if err != nil {
		return nil, err
	}
	inv.Timing = timing

	if s3 := config.Reporting.S3; s3 != nil {
		inv.Reporting.S3 = &model.S3Reporting{Bucket: s3.Bucket, Region: s3.Region, Prefix: s3.Prefix}
	}
	if influx := config.Reporting.Influx; influx != nil {
		inv.Reporting.Influx = &model.InfluxReporting{Url: influx.Url, Token: influx.Token, Org: influx.Org, Bucket: influx.Bucket}
	}

	return inv, nil
}

func parseTiming(t TimingYaml) (model.Timing, error) {
	timing := model.DefaultTiming()
	durations := []struct {
		name  string
		value string
		into  *time.Duration
	}{
		{"commitBudget", t.CommitBudget, &timing.CommitBudget},
		{"commitRoundDelay", t.CommitRoundDelay, &timing.CommitRoundDelay},
		{"syncInterval", t.SyncInterval, &timing.SyncInterval},
		{"requestTimeout", t.RequestTimeout, &timing.RequestTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return timing, errors.Wrapf(err, "invalid timing.%s", d.name)
		}
		if v <= 0 {
			return timing, errors.Errorf("timing.%s must be positive, got [%s]", d.name, d.value)
		}
		*d.into = v
	}
	if t.SyncAttempts > 0 {
		timing.SyncAttempts = t.SyncAttempts
	}
	return timing, nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
