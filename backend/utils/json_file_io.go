// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package utils

import (
	"encoding/json"
	"errors"
	"os"
)

// ReadJsonFile reads a JSON file and unmarshals it into a value of type T.
func ReadJsonFile[T any](file string) (T, error) {
	var res T
	data, err := os.ReadFile(file)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(data, &res); err != nil {
		var zero T
		return zero, err
	}
	return res, nil
}

// WriteJsonFile marshals the value into a JSON file. The content is written
// to a temporary file first and moved into place, so readers never observe
// a partially written file.
func WriteJsonFile[T any](file string, data T) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, file); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	return nil
}
