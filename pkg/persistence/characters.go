package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

// ThumbnailFile is written next to an imported character image.
const ThumbnailFile = "thumb.webp"

// LoadCharacterProfile reads the profile fields of a character.
func (e *Engine) LoadCharacterProfile(ctx context.Context, project, charID string) (*models.Profile, error) {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	var attributes string
	err = p.db.QueryRowContext(ctx, `
		SELECT age, nationality, sexuality, height, attributes, image_path
		FROM Character WHERE id = ?`, charID,
	).Scan(&profile.Age, &profile.Nationality, &profile.Sexuality, &profile.Height, &attributes, &profile.ImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(models.KindCharacter, charID)
	}
	if err != nil {
		return nil, fmt.Errorf("load character %s: %w", charID, err)
	}

	profile.Attributes = []models.Attribute{}
	if attributes != "" {
		if err := json.Unmarshal([]byte(attributes), &profile.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of %s: %w", charID, err)
		}
	}
	return &profile, nil
}

// SaveCharacterProfile overwrites every profile field of a character.
func (e *Engine) SaveCharacterProfile(ctx context.Context, project, charID string, profile models.Profile) error {
	p, _, err := e.project(ctx, project)
	if err != nil {
		return err
	}

	attrs := profile.Attributes
	if attrs == nil {
		attrs = []models.Attribute{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE Character
		SET age = ?, nationality = ?, sexuality = ?, height = ?, attributes = ?, image_path = ?, updated_at = ?
		WHERE id = ?`,
		profile.Age, profile.Nationality, profile.Sexuality, profile.Height,
		string(encoded), profile.ImagePath, e.now().UTC(), charID,
	)
	if err != nil {
		return fmt.Errorf("save character %s: %w", charID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(models.KindCharacter, charID)
	}
	return nil
}

// ImportCharacterImage copies sourcePath into the character's asset
// directory, replacing a file of the same name, renders a webp thumbnail and
// records the copy as the character image. It returns the absolute path of
// the copy.
func (e *Engine) ImportCharacterImage(ctx context.Context, project, charID, sourcePath string) (string, error) {
	if sourcePath == "" {
		return "", errors.New("no image selected")
	}
	src, err := filepath.Abs(sourcePath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("image source: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("image source %s is a directory", src)
	}

	p, root, err := e.project(ctx, project)
	if err != nil {
		return "", err
	}

	var exists int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM Character WHERE id = ?`, charID).Scan(&exists); err != nil {
		return "", err
	}
	if exists == 0 {
		return "", notFound(models.KindCharacter, charID)
	}

	dir := characterAssetDir(root, charID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(src))
	if dest != src {
		if err := copyFile(src, dest); err != nil {
			return "", fmt.Errorf("copy image: %w", err)
		}
	}

	if err := e.writeThumbnail(dest, filepath.Join(dir, ThumbnailFile)); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"character": charID,
			"source":    src,
		}).Warn("Could not render thumbnail")
	}

	if _, err := p.db.ExecContext(ctx,
		`UPDATE Character SET image_path = ?, updated_at = ? WHERE id = ?`, dest, e.now().UTC(), charID,
	); err != nil {
		return "", fmt.Errorf("record image: %w", err)
	}
	return dest, nil
}

func (e *Engine) writeThumbnail(imagePath, thumbPath string) error {
	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	if img.Bounds().Dx() > e.thumbnailWidth {
		img = imaging.Resize(img, e.thumbnailWidth, 0, imaging.Lanczos)
	}
	return webp.Save(thumbPath, img, &webp.Options{Quality: 85})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}
