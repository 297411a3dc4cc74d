package loader

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	vOnce sync.Once
	v     *validator.Validate
)

func getValidator() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())

		// report yaml names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("yaml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
	})
	return v
}

// Validate checks field constraints and the rules that span fields: unique
// hosts and known configuration domains.
func Validate(config *InventoryYaml) error {
	if err := getValidator().Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", strings.TrimPrefix(fe.Namespace(), "InventoryYaml."), fe.Tag()))
			}
			return errors.Errorf("validation failed: %s", strings.Join(msgs, ", "))
		}
		return err
	}

	seen := make(map[string]struct{})
	for _, d := range config.Devices {
		if _, dup := seen[d.Host]; dup {
			return errors.Errorf("duplicate device host [%s]", d.Host)
		}
		seen[d.Host] = struct{}{}
	}

	var unknown []string
	for name := range config.Templates {
		if _, err := model.GetDomainType(name); err != nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Errorf("unknown configuration domains %v (known: %v)", unknown, model.DomainNames())
	}
	return nil
}
