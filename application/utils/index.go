package utils

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

func GenerateULIDString() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

func GetBooleanPointer(data bool) *bool {
	return &data
}

func GetFloat64Pointer(data float64) *float64 {
	return &data
}

func GetIntPointer(data int) *int {
	return &data
}

// DecodeBase64Image decodes a base64 payload, tolerating the data URL prefix
// ("data:image/jpeg;base64,...") the browser capture layer includes.
func DecodeBase64Image(data string) ([]byte, error) {
	if data == "" {
		return nil, errors.New("empty image payload")
	}
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx != -1 {
			data = data[idx+1:]
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
