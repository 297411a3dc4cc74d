package panos

import (
	"strings"
)

// response holds the attributes and message every XML API reply carries.
type response struct {
	Status    string  `xml:"status,attr"`
	Code      string  `xml:"code,attr"`
	Msg       message `xml:"msg"`
	ResultMsg message `xml:"result>msg"`
}

func (r *response) envelope() *response {
	return r
}

func (r *response) ok() bool {
	return r.Status == "success"
}

func (r *response) message() string {
	if m := r.Msg.String(); m != "" {
		return m
	}
	return r.ResultMsg.String()
}

// message is either plain text or a list of <line> elements.
type message struct {
	Text  string   `xml:",chardata"`
	Lines []string `xml:"line"`
}

func (m message) String() string {
	parts := make([]string, 0, len(m.Lines)+1)
	if t := strings.TrimSpace(m.Text); t != "" {
		parts = append(parts, t)
	}
	for _, line := range m.Lines {
		if l := strings.TrimSpace(line); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "; ")
}

type enveloped interface {
	envelope() *response
}

type keygenResponse struct {
	response
	Key *string `xml:"result>key"`
}

type commitResponse struct {
	response
	Job *string `xml:"result>job"`
}

type jobResponse struct {
	response
	Job *jobElement `xml:"result>job"`
}

type jobElement struct {
	Id       string   `xml:"id"`
	Type     string   `xml:"type"`
	Status   *string  `xml:"status"`
	Result   string   `xml:"result"`
	Progress string   `xml:"progress"`
	Details  []string `xml:"details>line"`
}

type haStateResponse struct {
	response
	Enabled     *string `xml:"result>enabled"`
	LocalState  string  `xml:"result>group>local-info>state"`
	PeerState   string  `xml:"result>group>peer-info>state"`
	RunningSync *string `xml:"result>group>running-sync"`
}

type plainResponse struct {
	response
}
