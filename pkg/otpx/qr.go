package otpx

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pquerna/otp"
)

// WriteQRCode renders the provisioning URL as a size x size PNG at path.
func WriteQRCode(url, path string, size int) error {
	key, err := otp.NewKeyFromURL(url)
	if err != nil {
		return fmt.Errorf("invalid provisioning URL: %w", err)
	}

	img, err := key.Image(size, size)
	if err != nil {
		return fmt.Errorf("failed to render QR code: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}
