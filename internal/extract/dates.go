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

package extract

import (
	"fmt"
	"strings"
	"time"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

const (
	apiDateLayout     = "2006-01-02"
	compactDateLayout = "20060102"
)

// ResolveStartDate returns the first day to request, in YYYY-MM-DD form.
// The bookmark wins over the configured start date when present. Both
// YYYYMMDD and YYYY-MM-DD are accepted.
func ResolveStartDate(bookmark, startDate string) (string, error) {
	value := strings.TrimSpace(bookmark)
	if value == "" {
		value = strings.TrimSpace(startDate)
	}
	if value == "" {
		return "", fmt.Errorf("no start date configured and no bookmark stored: %w", relaierrors.ErrConfig)
	}

	t, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return t.Format(apiDateLayout), nil
}

// ResolveEndDate returns the last day to request: the day before end, or
// the day before now (UTC) when end is empty.
func ResolveEndDate(end string, now time.Time) (string, error) {
	var t time.Time
	if strings.TrimSpace(end) == "" {
		n := now.UTC()
		t = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		var err error
		if t, err = ParseDate(end); err != nil {
			return "", err
		}
	}
	return t.AddDate(0, 0, -1).Format(apiDateLayout), nil
}

// ParseDate parses a YYYYMMDD or YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(compactDateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(apiDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is neither YYYYMMDD nor YYYY-MM-DD: %w", value, relaierrors.ErrConfig)
	}
	return t, nil
}
