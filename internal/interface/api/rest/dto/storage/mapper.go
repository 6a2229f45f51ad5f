package storage

import (
	"github.com/samber/lo"

	"lego-filestore/internal/domain/storage"
)

func ToResponseObject(o storage.ObjectInfo) Object {
	return Object{
		Key:          o.Key,
		Size:         o.Size,
		ContentType:  o.ContentType,
		LastModified: o.LastModified,
		ETag:         o.ETag,
		URL:          o.URL,
	}
}

func ToResponseObjects(in storage.Objects) Objects {
	return lo.Map(in, func(o storage.ObjectInfo, _ int) Object { return ToResponseObject(o) })
}

func ToResponseStats(s storage.Stats) Stats {
	return Stats{
		Objects:        s.Objects,
		TotalSize:      s.TotalSize,
		TotalSizeHuman: s.TotalSizeHuman,
		ByType: lo.MapValues(s.ByType, func(t storage.TypeStats, _ string) TypeStats {
			return TypeStats{Count: t.Count, Size: t.Size}
		}),
		Truncated: s.Truncated,
	}
}
