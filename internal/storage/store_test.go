package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/sim"
	"github.com/san-kum/clifford/internal/storage"
)

var _ = Describe("Store", func() {
	var (
		dir    string
		st     *storage.Store
		info   storage.RunInfo
		result *sim.Result
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		st = storage.New(dir)
		Expect(st.Init()).To(Succeed())

		info = storage.RunInfo{
			Width:   64,
			Height:  48,
			Start:   dynamo.DefaultStart,
			Source:  dynamo.Randomized(42),
			Session: sim.SessionConfig{CalibrationSamples: 5000, FrameBudget: 15 * time.Millisecond},
		}
		result = &sim.Result{
			Params: dynamo.CanonicalParams,
			Bounds: sim.Bounds{XMin: -1, XMax: 1, YMin: -2, YMax: 2},
			Frames: []sim.FrameStats{
				{Frame: 1, Iterations: 2048, Elapsed: 15 * time.Millisecond, TotalIters: 2048, Touched: 300, Maxed: 0, Clamped: 1},
				{Frame: 2, Iterations: 1024, Elapsed: 16 * time.Millisecond, TotalIters: 3072, Touched: 420, Maxed: 2, Clamped: 1},
			},
			Metrics: map[string]float64{"coverage": 0.13},
		}
	})

	Describe("Save and Load", func() {
		It("round-trips metadata", func() {
			id, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(HavePrefix("random_"))

			meta, err := st.Load(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.ID).To(Equal(id))
			Expect(meta.Source).To(Equal("random"))
			Expect(meta.Seed).To(Equal(int64(42)))
			Expect(meta.Params).To(Equal(dynamo.CanonicalParams))
			Expect(meta.Bounds).To(Equal(result.Bounds))
			Expect(meta.Width).To(Equal(64))
			Expect(meta.BudgetMs).To(Equal(int64(15)))
			Expect(meta.Frames).To(Equal(2))
			Expect(meta.Metrics).To(HaveKeyWithValue("coverage", 0.13))
		})

		It("round-trips frame statistics", func() {
			id, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())

			frames, err := st.LoadFrames(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal(result.Frames))
		})

		It("never writes pixel data", func() {
			id, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())

			entries, err := os.ReadDir(filepath.Join(dir, id))
			Expect(err).NotTo(HaveOccurred())
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			Expect(names).To(ConsistOf("metadata.json", "frames.csv"))
		})

		It("rejects a nil result", func() {
			_, err := st.Save(info, nil)
			Expect(err).To(HaveOccurred())
		})

		It("fails to load a missing run", func() {
			_, err := st.Load("missing")
			Expect(err).To(HaveOccurred())
		})

		It("reports a malformed frames file", func() {
			id, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())

			path := filepath.Join(dir, id, "frames.csv")
			Expect(os.WriteFile(path, []byte("frame,iterations,elapsed_ns,total_iters,touched,maxed,clamped\n1,x,0,0,0,0,0\n"), 0644)).To(Succeed())

			_, err = st.LoadFrames(id)
			Expect(err).To(MatchError(ContainSubstring("line 2")))
		})
	})

	Describe("List", func() {
		It("returns an empty list for a missing directory", func() {
			runs, err := storage.New(filepath.Join(dir, "nope")).List()
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(BeEmpty())
		})

		It("lists saved runs oldest first and skips stray entries", func() {
			first, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())
			time.Sleep(2 * time.Millisecond)
			info.Source = dynamo.Fixed(dynamo.CanonicalParams)
			second, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())

			Expect(os.Mkdir(filepath.Join(dir, "junk"), 0755)).To(Succeed())

			runs, err := st.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(2))
			Expect(runs[0].ID).To(Equal(first))
			Expect(runs[1].ID).To(Equal(second))
		})
	})

	Describe("Delete", func() {
		It("removes a run", func() {
			id, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Delete(id)).To(Succeed())

			_, err = st.Load(id)
			Expect(err).To(HaveOccurred())
		})

		It("refuses to delete something that is not a run", func() {
			Expect(os.Mkdir(filepath.Join(dir, "junk"), 0755)).To(Succeed())
			Expect(st.Delete("junk")).NotTo(Succeed())
		})
	})

	Describe("ExportJSON", func() {
		It("writes metadata and frames together", func() {
			id, err := st.Save(info, result)
			Expect(err).NotTo(HaveOccurred())

			out := filepath.Join(dir, "export.json")
			Expect(st.ExportJSON(id, out)).To(Succeed())

			data, err := os.ReadFile(out)
			Expect(err).NotTo(HaveOccurred())

			var exported storage.ExportData
			Expect(json.Unmarshal(data, &exported)).To(Succeed())
			Expect(exported.Run.ID).To(Equal(id))
			Expect(exported.Frames).To(Equal(result.Frames))
		})
	})
})
