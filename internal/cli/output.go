// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authenticator.
//
// go-authenticator is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-authenticator/pkg/authorization"
	"github.com/jeremyhahn/go-authenticator/pkg/connection"
	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/provisioning"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintTags prints stored key tags
func (p *Printer) PrintTags(tags []keystore.Tag) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{"tags": tags})
	}
	if len(tags) == 0 {
		fmt.Fprintln(p.writer, "No keys found")
		return nil
	}
	fmt.Fprintln(p.writer, "Keys:")
	for _, tag := range tags {
		kind := "public"
		if tag.IsPrivate() {
			kind = "private"
		}
		fmt.Fprintf(p.writer, "  - %s (%s)\n", tag, kind)
	}
	return nil
}

// PrintPublicKey prints a PEM encoded public key
func (p *Printer) PrintPublicKey(tag keystore.Tag, pemData string) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{"tag": tag, "public_key": pemData})
	}
	_, err := io.WriteString(p.writer, pemData)
	return err
}

// PrintEnvelope prints an encrypted envelope. Text output is JSON too;
// the envelope is a wire format.
func (p *Printer) PrintEnvelope(env *envelope.Envelope) error {
	return p.printJSON(env)
}

// PrintPlaintext prints decrypted data
func (p *Printer) PrintPlaintext(s string) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{"plaintext": s})
	}
	_, err := fmt.Fprintln(p.writer, s)
	return err
}

// PrintHeaders prints a signed header set in sorted order
func (p *Printer) PrintHeaders(h http.Header) error {
	if p.format == OutputFormatJSON {
		flat := make(map[string]string, len(h))
		for k := range h {
			flat[k] = h.Get(k)
		}
		return p.printJSON(flat)
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.writer, "%s: %s\n", k, h.Get(k))
	}
	return nil
}

// PrintResult prints the outcome of a provisioning attempt
func (p *Printer) PrintResult(conn *connection.Connection, res *provisioning.Result) error {
	if p.format == OutputFormatJSON {
		out := map[string]any{
			"guid":  conn.GUID,
			"state": res.State.String(),
		}
		if res.ConnectionID != "" {
			out["connection_id"] = res.ConnectionID
		}
		if res.RedirectURL != "" {
			out["redirect_url"] = res.RedirectURL
		}
		if res.AuthenticationURL != "" {
			out["authentication_url"] = res.AuthenticationURL
		}
		return p.printJSON(out)
	}
	fmt.Fprintf(p.writer, "Connection: %s (%s)\n", conn.GUID, conn.Name)
	fmt.Fprintf(p.writer, "State:      %s\n", res.State)
	switch {
	case res.AccessToken != "":
		fmt.Fprintln(p.writer, "Connected.")
	case res.RedirectURL != "":
		fmt.Fprintf(p.writer, "Continue at: %s\n", res.RedirectURL)
	case res.AuthenticationURL != "":
		fmt.Fprintf(p.writer, "Authenticate at: %s\n", res.AuthenticationURL)
	}
	return nil
}

// PrintConnections prints stored connections
func (p *Printer) PrintConnections(conns []*connection.Connection) error {
	if p.format == OutputFormatJSON {
		list := make([]map[string]any, len(conns))
		for i, c := range conns {
			list[i] = map[string]any{
				"guid":          c.GUID,
				"id":            c.ID,
				"provider_code": c.ProviderCode,
				"name":          c.Name,
				"api_version":   c.APIVersion,
				"status":        c.Status,
			}
		}
		return p.printJSON(map[string]any{"connections": list})
	}
	if len(conns) == 0 {
		fmt.Fprintln(p.writer, "No connections found")
		return nil
	}
	fmt.Fprintf(p.writer, "%-38s %-20s %-4s %-10s\n", "GUID", "PROVIDER", "API", "STATUS")
	fmt.Fprintln(p.writer, strings.Repeat("-", 75))
	for _, c := range conns {
		fmt.Fprintf(p.writer, "%-38s %-20s %-4s %-10s\n", c.GUID, c.ProviderCode, c.APIVersion, c.Status)
	}
	return nil
}

// PrintAuthorizations prints decrypted authorizations
func (p *Printer) PrintAuthorizations(list []*authorization.Authorization) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{"authorizations": list})
	}
	if len(list) == 0 {
		fmt.Fprintln(p.writer, "No pending authorizations")
		return nil
	}
	for _, a := range list {
		fmt.Fprintf(p.writer, "[%s] %s - %s (expires %s)\n", a.ID, a.Title, a.Description, a.ExpiresAt.Format("15:04:05"))
	}
	return nil
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(msg string) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{"success": true, "message": msg})
	}
	_, err := fmt.Fprintln(p.writer, msg)
	return err
}

// PrintError prints an error
func (p *Printer) PrintError(err error) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{"success": false, "error": err.Error()})
	}
	_, werr := fmt.Fprintf(p.writer, "Error: %v\n", err)
	return werr
}

func (p *Printer) printJSON(data any) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
