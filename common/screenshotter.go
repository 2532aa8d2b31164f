/*
 *
 * xk6-browser - a browser automation extension for k6
 * Copyright (C) 2021 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package common

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/partnet/seauto/api"
)

// SaveScreenshot captures the active window as PNG and persists it at path.
// It reports false without an error when screenshots are disabled in the
// configuration or the target cannot take them.
func (v *View) SaveScreenshot(ctx context.Context, path string) (bool, error) {
	allow, err := v.conf.Bool(KeyScreenshotsAllow)
	if err != nil {
		return false, err
	}
	if !allow {
		v.logger.Debugf("View:SaveScreenshot", "screenshots are disabled, skipping %q", path)
		return false, nil
	}
	s, ok := v.target.(api.Screenshotter)
	if !ok {
		v.logger.Warnf("View:SaveScreenshot", "target %T cannot take screenshots", v.target)
		return false, nil
	}

	path, err = v.screenshotPath(path)
	if err != nil {
		return false, err
	}
	buf, err := s.Screenshot(ctx)
	if err != nil {
		return false, errors.Wrap(err, "capturing screenshot")
	}
	if err := v.persister.Persist(ctx, path, bytes.NewReader(buf)); err != nil {
		return false, errors.Wrapf(err, "saving screenshot to %q", path)
	}
	v.logger.Debugf("View:SaveScreenshot", "screenshot saved to %q (%d bytes)", path, len(buf))

	return true, nil
}

// screenshotPath resolves relative paths against the configured screenshot
// directory and adds a .png extension when there is none.
func (v *View) screenshotPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.Wrap(ErrInvalidArgument, "screenshot path is empty")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case "":
		path += ".png"
	case ".png":
	default:
		return "", errors.Wrapf(ErrInvalidArgument, "screenshots are saved as png, not %q", ext)
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dir, err := v.conf.String(KeyScreenshotsDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, path), nil
}
