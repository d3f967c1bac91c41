package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// convertImageToMat converts a decoded image to an OpenCV Mat, trying an
// RGBA roundtrip when the direct conversion fails.
func convertImageToMat(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err == nil && !mat.Empty() {
		return mat, nil
	}

	matRGBA, err := gocv.ImageToMatRGBA(img)
	if err == nil && !matRGBA.Empty() {
		defer matRGBA.Close()
		matRGB := gocv.NewMat()
		gocv.CvtColor(matRGBA, &matRGB, gocv.ColorRGBAToRGB)
		if !matRGB.Empty() {
			return matRGB, nil
		}
		matRGB.Close()
	}

	return gocv.Mat{}, fmt.Errorf("image could not be converted to Mat")
}
