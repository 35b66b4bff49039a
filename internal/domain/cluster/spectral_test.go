package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/gazecluster/internal/domain/model"
	"github.com/okian/gazecluster/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func pts(xy ...float64) []model.Point {
	out := make([]model.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, model.Point{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func TestSpectralCluster(t *testing.T) {
	Convey("Given a spectral clusterer with defaults", t, func() {
		s := NewSpectral()
		ctx := context.Background()

		Convey("When two tight, well separated pairs are clustered", func() {
			res, err := s.Cluster(ctx, pts(0.1, 0.1, 0.12, 0.09, 0.8, 0.8, 0.82, 0.79))

			Convey("Then the pairs form two clusters", func() {
				So(err, ShouldBeNil)
				So(res.K, ShouldEqual, 2)
				So(res.Labels, ShouldResemble, []int{0, 0, 1, 1})
				So(res.Silhouette, ShouldBeGreaterThan, 0.9)
				So(res.SpectralK, ShouldBeGreaterThanOrEqualTo, 1)
				So(len(res.Embedding), ShouldEqual, 4)
				So(len(res.Embedding[0]), ShouldEqual, 3)
			})
		})

		Convey("When three collinear points are clustered", func() {
			res, err := s.Cluster(ctx, pts(0.1, 0.5, 0.5, 0.5, 0.9, 0.5))

			Convey("Then each point gets a label in range", func() {
				So(err, ShouldBeNil)
				So(len(res.Labels), ShouldEqual, 3)
				So(res.K, ShouldEqual, 2)
				for _, l := range res.Labels {
					So(l, ShouldBeBetweenOrEqual, 0, res.K-1)
				}
				So(res.Labels[0], ShouldEqual, 0)
			})
		})

		Convey("When exactly two distinct points are clustered", func() {
			res, err := s.Cluster(ctx, pts(0.2, 0.2, 0.7, 0.7))

			Convey("Then each is its own cluster", func() {
				So(err, ShouldBeNil)
				So(res.Labels, ShouldResemble, []int{0, 1})
				So(res.K, ShouldEqual, 2)
				So(len(res.Embedding), ShouldEqual, 2)
				So(len(res.Embedding[0]), ShouldEqual, 2)
			})
		})

		Convey("When fewer than two points are given", func() {
			_, errNone := s.Cluster(ctx, nil)
			_, errOne := s.Cluster(ctx, pts(0.5, 0.5))

			Convey("Then the data is insufficient", func() {
				So(errors.Is(errNone, ErrInsufficientData), ShouldBeTrue)
				So(errors.Is(errOne, ErrInsufficientData), ShouldBeTrue)
			})
		})

		Convey("When every point is identical", func() {
			_, err := s.Cluster(ctx, pts(0.3, 0.3, 0.3, 0.3, 0.3, 0.3))

			Convey("Then the data is insufficient", func() {
				So(errors.Is(err, ErrInsufficientData), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Cluster(cctx, pts(0.1, 0.1, 0.12, 0.09, 0.8, 0.8, 0.82, 0.79))

			Convey("Then clustering stops with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the deadline has already passed", func() {
			dctx, cancel := context.WithTimeout(ctx, -time.Second)
			defer cancel()
			_, err := s.Cluster(dctx, pts(0.1, 0.1, 0.12, 0.09, 0.8, 0.8, 0.82, 0.79))

			Convey("Then clustering stops with a deadline error", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})

		Convey("When positions repeat more often than there are distinct ones", func() {
			var xy []float64
			for i := 0; i < 4; i++ {
				xy = append(xy, 0.1, 0.1, 0.5, 0.9, 0.9, 0.1)
			}
			res, err := s.Cluster(ctx, pts(xy...))

			Convey("Then k never exceeds the distinct count and duplicates share a label", func() {
				So(err, ShouldBeNil)
				So(res.K, ShouldEqual, 3)
				for i := 3; i < len(res.Labels); i++ {
					So(res.Labels[i], ShouldEqual, res.Labels[i%3])
				}
			})
		})
	})

	Convey("Given a clusterer with a point cap", t, func() {
		s := NewSpectral(WithMaxPoints(3))

		Convey("When more points than the cap are given", func() {
			_, err := s.Cluster(context.Background(), pts(0.1, 0.1, 0.2, 0.2, 0.3, 0.3, 0.4, 0.4))

			Convey("Then the input is rejected", func() {
				So(errors.Is(err, ErrTooManyPoints), ShouldBeTrue)
			})
		})
	})

	Convey("Given three well separated groups", t, func() {
		input := pts(
			0.10, 0.10, 0.11, 0.12, 0.12, 0.10, 0.09, 0.11,
			0.50, 0.90, 0.51, 0.89, 0.49, 0.91, 0.50, 0.88,
			0.90, 0.10, 0.91, 0.11, 0.89, 0.12, 0.90, 0.09,
		)

		Convey("When clustered twice with the same seed", func() {
			a, errA := NewSpectral(WithSeed(7)).Cluster(context.Background(), input)
			b, errB := NewSpectral(WithSeed(7)).Cluster(context.Background(), input)

			Convey("Then three clusters are found deterministically", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a.K, ShouldEqual, 3)
				So(a.Labels, ShouldResemble, b.Labels)
				So(a.Labels, ShouldResemble, []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2})
				So(a.SpectralK, ShouldEqual, 3)
			})
		})
	})
}

func TestOptions(t *testing.T) {
	Convey("Given invalid option values", t, func() {
		s := NewSpectral(WithBeta(-1), WithRestarts(0), WithMaxIterations(0))

		Convey("Then defaults are kept", func() {
			So(s.beta, ShouldEqual, defaultBeta)
			So(s.restarts, ShouldEqual, defaultRestarts)
			So(s.maxIter, ShouldEqual, defaultMaxIter)
		})
	})

	Convey("Given a non-positive point cap", t, func() {
		s := NewSpectral(WithMaxPoints(0))

		Convey("Then no cap is applied", func() {
			So(s.maxPoints, ShouldEqual, 0)
		})
	})
}

func TestSilhouette(t *testing.T) {
	Convey("Given a distance matrix for four points", t, func() {
		coords := [][]float64{{0, 0}, {0, 1}, {10, 0}, {10, 1}}
		dist := pairwiseDistances(coords)

		Convey("When the natural split is scored", func() {
			sil, err := silhouette(dist, []int{0, 0, 1, 1})

			Convey("Then the score is close to one", func() {
				So(err, ShouldBeNil)
				So(sil, ShouldBeGreaterThan, 0.85)
				So(sil, ShouldBeLessThanOrEqualTo, 1)
			})
		})

		Convey("When a bad split is scored", func() {
			good, _ := silhouette(dist, []int{0, 0, 1, 1})
			bad, err := silhouette(dist, []int{0, 1, 0, 1})

			Convey("Then it scores lower", func() {
				So(err, ShouldBeNil)
				So(bad, ShouldBeLessThan, good)
			})
		})

		Convey("When every point shares one label or has its own", func() {
			_, errOne := silhouette(dist, []int{0, 0, 0, 0})
			_, errAll := silhouette(dist, []int{0, 1, 2, 3})

			Convey("Then the score is undefined", func() {
				So(errors.Is(errOne, errSilhouetteUndefined), ShouldBeTrue)
				So(errors.Is(errAll, errSilhouetteUndefined), ShouldBeTrue)
			})
		})
	})
}

func TestCanonical(t *testing.T) {
	Convey("Given labels in arbitrary order", t, func() {
		Convey("Then they are renumbered by first appearance", func() {
			So(canonical([]int{2, 2, 0, 1, 0}), ShouldResemble, []int{0, 0, 1, 2, 1})
		})
	})
}
