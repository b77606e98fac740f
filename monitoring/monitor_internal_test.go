package monitoring

import (
	"encoding/json"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleRun struct {
	now int64
	day int
}

func (r sampleRun) Now() int64 {
	return r.now
}

func (r sampleRun) Day() int {
	return r.day
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = NewMonitor()
	})

	It("should register runs", func() {
		m.RegisterRun(sampleRun{now: 1000, day: 2})

		Expect(m.runs).To(HaveLen(1))
	})

	It("should report run times", func() {
		m.RegisterRun(sampleRun{now: 1000, day: 2})
		m.RegisterRun(sampleRun{now: 500, day: 0})

		w := httptest.NewRecorder()
		m.now(w, nil)

		var rsp []runRsp
		err := json.Unmarshal(w.Body.Bytes(), &rsp)

		Expect(err).To(BeNil())
		Expect(rsp).To(HaveLen(2))
		Expect(rsp[0].Day).To(Equal(2))
		Expect(rsp[0].NowMS).To(Equal(int64(1000)))
		Expect(rsp[1].NowMS).To(Equal(int64(500)))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("days", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		Expect(m.sumProgress(0)).To(Equal(uint64(10)))
		Expect(m.sumProgress(1)).To(Equal(uint64(3)))
		Expect(m.sumProgress(2)).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should list progress bars as JSON", func() {
		bar := m.CreateProgressBar("days", 10)
		bar.IncrementFinished(7)

		w := httptest.NewRecorder()
		m.listProgressBars(w, nil)

		var bars []map[string]any
		err := json.Unmarshal(w.Body.Bytes(), &bars)

		Expect(err).To(BeNil())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("days"))
		Expect(bars[0]["finished"]).To(Equal(float64(7)))
	})
})
