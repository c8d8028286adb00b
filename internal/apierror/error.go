// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apierror

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is a classified reporting API error.
type Error struct {
	Kind    Kind
	Status  int
	Reason  string
	Message string
}

// New builds a classified error from a status and reason code.
func New(status int, reason, message string) *Error {
	return &Error{
		Kind:    Classify(status, reason),
		Status:  status,
		Reason:  reason,
		Message: message,
	}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d", e.Status)
		if e.Reason != "" {
			fmt.Fprintf(&b, ", reason %s", e.Reason)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap allows errors.Is against the sentinel errors of the errors package.
func (e *Error) Unwrap() error {
	return e.Kind.Sentinel()
}

// googleErrorBody is the JSON error envelope of Google APIs.
type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Domain  string `json:"domain"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// FromResponse classifies a non-2xx response. The reason code is the first
// entry of error.errors; bodies that are not JSON keep their raw text as
// the message.
func FromResponse(status int, body []byte) *Error {
	var parsed googleErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil || (parsed.Error.Code == 0 && parsed.Error.Message == "") {
		return New(status, "", strings.TrimSpace(string(body)))
	}

	reason := ""
	if len(parsed.Error.Errors) > 0 {
		reason = parsed.Error.Errors[0].Reason
	}
	return New(status, reason, parsed.Error.Message)
}
