package teams

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/slacktail/internal/config"
)

// Directory lookups during a subscribe cycle run concurrently, but bounded
// so a long channel list does not stampede the API.
const subscribeConcurrency = 4

type resolution struct {
	keep bool
	info ConversationInfo
	skip SkipReason
	err  error
}

// subscribe resolves every configured channel against the platform directory
// and builds the kept set for this session. Channels that fail shape checks,
// lookups, or membership are skipped with a reason; an auth failure aborts
// the whole cycle. At least one channel must survive.
func (c *Client) subscribe(ctx context.Context) error {
	results := make([]resolution, len(c.cfg.Channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subscribeConcurrency)
	for i, id := range c.cfg.Channels {
		i, id := i, id
		if !config.ValidChannelID(id) {
			results[i] = resolution{skip: SkipInvalidFormat}
			continue
		}
		g.Go(func() error {
			info, err := c.tr.ConversationInfo(gctx, id)
			if err != nil {
				if IsAuthError(err) {
					return fmt.Errorf("resolve channel %s: %w", id, err)
				}
				results[i] = resolution{skip: classifyChannelError(err), err: err}
				return nil
			}
			if !info.IsMember {
				results[i] = resolution{skip: SkipNotAMember}
				return nil
			}
			results[i] = resolution{keep: true, info: info}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var (
		kept      []string
		keptSet   = make(map[string]bool)
		directory = make(map[string]string)
		skipped   []SkippedChannel
	)
	for i, res := range results {
		id := c.cfg.Channels[i]
		if !res.keep {
			skipped = append(skipped, SkippedChannel{ChannelID: id, Reason: res.skip, Err: res.err})
			continue
		}
		kept = append(kept, id)
		keptSet[id] = true
		directory[id] = res.info.Name
	}

	if len(skipped) > 0 {
		c.log.Warn("channels skipped",
			"team", c.team,
			"count", len(skipped),
			"channels", summarizeSkipped(skipped))
	}

	if len(kept) == 0 {
		return fmt.Errorf("%w: team %q: all %d configured channels skipped",
			ErrNoValidChannels, c.team, len(c.cfg.Channels))
	}

	c.mu.Lock()
	c.kept = kept
	c.keptSet = keptSet
	c.directory = directory
	c.skipped = skipped
	c.mu.Unlock()
	return nil
}
