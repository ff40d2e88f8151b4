/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package token

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/clock/testclock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/panteparak/console-broker/pkg/vault"
	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

var _ = Describe("Manager concurrency", func() {
	var (
		ctx context.Context
		fv  *fakeVault
		clk *testclock.Clock
		m   *Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		fv = newFakeVault(GinkgoT())
		clk = testclock.NewClock(testEpoch)
		m = NewManager(ManagerConfig{}, fv.client(GinkgoT()), workloadMethod(), logr.Discard(), WithClock(clk))
	})

	Describe("first login", func() {
		It("shares one login between concurrent callers", func() {
			const callers = 50
			gate := make(chan struct{})
			fv.setLoginGate(gate)

			var wg sync.WaitGroup
			tokens := make([]string, callers)
			errs := make([]error, callers)

			By("starting callers while the login is held open")
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(idx int) {
					defer GinkgoRecover()
					defer wg.Done()
					c, err := m.Client(ctx)
					errs[idx] = err
					if err == nil {
						tokens[idx] = c.Token()
					}
				}(i)
			}

			Eventually(fv.logins.Load).Should(Equal(int32(1)))
			Consistently(fv.logins.Load, 100*time.Millisecond).Should(Equal(int32(1)))

			By("releasing the login")
			close(gate)
			wg.Wait()

			for i := 0; i < callers; i++ {
				Expect(errs[i]).NotTo(HaveOccurred())
				Expect(tokens[i]).To(Equal("s.workload-1"))
			}
			Expect(fv.logins.Load()).To(Equal(int32(1)))
		})

		It("does not fail the shared login when one caller gives up", func() {
			gate := make(chan struct{})
			fv.setLoginGate(gate)

			impatientCtx, cancel := context.WithCancel(ctx)
			impatientErr := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := m.Client(impatientCtx)
				impatientErr <- err
			}()
			Eventually(fv.logins.Load).Should(Equal(int32(1)))

			patientToken := make(chan string, 1)
			go func() {
				defer GinkgoRecover()
				c, err := m.Client(ctx)
				Expect(err).NotTo(HaveOccurred())
				patientToken <- c.Token()
			}()

			By("cancelling the caller that started the login")
			cancel()
			Eventually(impatientErr).Should(Receive(MatchError(context.Canceled)))

			close(gate)
			Eventually(patientToken).Should(Receive(Equal("s.workload-1")))
			Expect(m.Ready()).To(BeTrue())
			Expect(fv.logins.Load()).To(Equal(int32(1)))
		})
	})

	Describe("renewal after expiry", func() {
		BeforeEach(func() {
			_, err := m.Login(ctx)
			Expect(err).NotTo(HaveOccurred())
			clk.Advance(time.Hour)
			Expect(m.Ready()).To(BeFalse())
		})

		It("renews exactly once for many concurrent callers", func() {
			const callers = 20
			gate := make(chan struct{})
			fv.setLoginGate(gate)

			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					c, err := m.Client(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(c.Token()).To(Equal("s.workload-2"))
				}()
			}

			Eventually(fv.logins.Load).Should(Equal(int32(2)))
			close(gate)
			wg.Wait()

			Expect(fv.logins.Load()).To(Equal(int32(2)))
			Expect(m.Ready()).To(BeTrue())
		})

		It("lets callers join a forced renewal", func() {
			gate := make(chan struct{})
			fv.setLoginGate(gate)

			done := make(chan string, 2)
			go func() {
				defer GinkgoRecover()
				c, err := m.ForceRenew(ctx)
				Expect(err).NotTo(HaveOccurred())
				done <- c.Token()
			}()
			Eventually(fv.logins.Load).Should(Equal(int32(2)))

			go func() {
				defer GinkgoRecover()
				c, err := m.Client(ctx)
				Expect(err).NotTo(HaveOccurred())
				done <- c.Token()
			}()

			close(gate)
			Eventually(done).Should(Receive(Equal("s.workload-2")))
			Eventually(done).Should(Receive(Equal("s.workload-2")))
			Expect(fv.logins.Load()).To(Equal(int32(2)))
		})
	})

	Describe("policy denials", func() {
		It("does not log in again while the token is still accepted", func() {
			_, err := m.Login(ctx)
			Expect(err).NotTo(HaveOccurred())

			const callers = 10
			denied := infraerrors.NewPermissionDeniedError("read", "apps/other/secrets", nil)

			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					err := m.Do(ctx, func(*vault.Client) error { return denied })
					Expect(infraerrors.IsPermissionDeniedError(err)).To(BeTrue())
				}()
			}
			wg.Wait()

			Expect(fv.lookups.Load()).To(BeNumerically(">=", int32(callers)))
			Expect(fv.logins.Load()).To(Equal(int32(1)))
			Expect(m.Ready()).To(BeTrue())
		})
	})
})
