package store

import (
	"context"
	"fmt"

	"github.com/ipagrab/ipagrab/internal/domain"
)

type downloadResponse struct {
	FailureType     string     `plist:"failureType"`
	CustomerMessage string     `plist:"customerMessage"`
	Songs           []songItem `plist:"songList"`
}

type songItem struct {
	URL      string         `plist:"URL"`
	Sinfs    []domain.Sinf  `plist:"sinfs"`
	Metadata map[string]any `plist:"metadata"`
}

// DownloadProduct requests a download grant for one app version. The grant is
// the first songList entry in the response; an empty song list means the
// account cannot download this app+version and is fatal for the job.
func (c *Client) DownloadProduct(ctx context.Context, s *domain.Session, appID, versionID string) (*domain.Grant, error) {
	payload := map[string]any{
		"creditDisplay": "",
		"guid":          s.GUID,
		"salableAdamId": appID,
	}
	if versionID != "" {
		payload["externalVersionId"] = versionID
	}

	headers := map[string]string{
		"X-Dsid":      s.DSID,
		"iCloud-DSID": s.DSID,
	}

	var res downloadResponse
	if err := c.post(ctx, buyPath, headers, payload, &res); err != nil {
		return nil, err
	}

	if res.FailureType != "" {
		msg := res.CustomerMessage
		if msg == "" {
			msg = res.FailureType
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrLicenseRequired, msg)
	}

	if len(res.Songs) == 0 {
		return nil, fmt.Errorf("%w: empty song list for app %s", domain.ErrLicenseRequired, appID)
	}

	song := res.Songs[0]
	if song.URL == "" {
		return nil, fmt.Errorf("%w: grant carries no download URL", domain.ErrLicenseRequired)
	}

	grant := &domain.Grant{
		AppName:  metaString(song.Metadata, "bundleDisplayName"),
		BundleID: metaString(song.Metadata, "softwareVersionBundleId"),
		Version:  metaString(song.Metadata, "bundleShortVersionString"),
		URL:      song.URL,
		Sinfs:    song.Sinfs,
		Metadata: song.Metadata,
	}

	c.log.Info("Granted download for %s %s (%s)", grant.BundleID, grant.Version, appID)

	return grant, nil
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
