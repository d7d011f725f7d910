package reportform

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

// maxPictureBytes caps embedded pictures. The whole collection lives in one
// stored entry, so an oversized upload would crowd out every other incident.
const maxPictureBytes = 5 << 20

var (
	errEmptyPicture = errors.New("picture file is empty")
	errPictureSize  = errors.New("picture file too large to embed")
)

// encodePicture turns raw file bytes into a data URI that an <img> tag can
// display directly, with the content type sniffed from the payload.
func encodePicture(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyPicture
	}
	if len(data) > maxPictureBytes {
		return "", fmt.Errorf("%w: %d bytes", errPictureSize, len(data))
	}

	contentType := http.DetectContentType(data)
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
