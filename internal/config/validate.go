package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if c.Camera.MinZoom > c.Camera.MaxZoom {
		return fmt.Errorf("camera.min_zoom (%g) exceeds camera.max_zoom (%g)", c.Camera.MinZoom, c.Camera.MaxZoom)
	}
	if c.Camera.FocusZoom < c.Camera.MinZoom || c.Camera.FocusZoom > c.Camera.MaxZoom {
		return fmt.Errorf("camera.focus_zoom (%g) outside [%g, %g]", c.Camera.FocusZoom, c.Camera.MinZoom, c.Camera.MaxZoom)
	}
	return nil
}
