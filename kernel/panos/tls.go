package panos

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pkcs12"
)

// TLSConfig builds the client TLS configuration from an explicit policy.
func TLSConfig(policy model.TLSPolicy) (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: policy.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	if policy.CAFile != "" {
		pem, err := os.ReadFile(policy.CAFile)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read ca file [%s]", policy.CAFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates found in ca file [%s]", policy.CAFile)
		}
		cfg.RootCAs = pool
	}

	if policy.ClientBundle != "" {
		data, err := os.ReadFile(policy.ClientBundle)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read client bundle [%s]", policy.ClientBundle)
		}
		key, cert, err := pkcs12.Decode(data, policy.ClientBundlePassword)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to decode client bundle [%s]", policy.ClientBundle)
		}
		cfg.Certificates = []tls.Certificate{{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  key,
			Leaf:        cert,
		}}
	}

	return cfg, nil
}
