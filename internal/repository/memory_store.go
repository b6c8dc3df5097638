package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"mastersrl/carnivalhub/internal/model"
)

// MemoryStore keeps every table in process memory. Transactions are serialized
// and operate on a private copy that replaces the committed data on success.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
	now  func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for CreatedAt/UpdatedAt.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{data: newMemData(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, &memRepositories{data: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &memRepositories{data: s.data.clone(), now: s.now})
}

type memData struct {
	seq           uint
	users         map[uint]model.User
	clubs         map[uint]model.Club
	altNames      map[uint]model.ClubAlternateName
	carnivals     map[uint]model.Carnival
	attendances   map[uint]model.CarnivalClub
	subscriptions map[uint]model.EmailSubscription
	tokens        map[uint]model.InvitationToken
}

func newMemData() *memData {
	return &memData{
		users:         map[uint]model.User{},
		clubs:         map[uint]model.Club{},
		altNames:      map[uint]model.ClubAlternateName{},
		carnivals:     map[uint]model.Carnival{},
		attendances:   map[uint]model.CarnivalClub{},
		subscriptions: map[uint]model.EmailSubscription{},
		tokens:        map[uint]model.InvitationToken{},
	}
}

func (d *memData) clone() *memData {
	return &memData{
		seq:           d.seq,
		users:         maps.Clone(d.users),
		clubs:         maps.Clone(d.clubs),
		altNames:      maps.Clone(d.altNames),
		carnivals:     maps.Clone(d.carnivals),
		attendances:   maps.Clone(d.attendances),
		subscriptions: maps.Clone(d.subscriptions),
		tokens:        maps.Clone(d.tokens),
	}
}

func (d *memData) nextID() uint {
	d.seq++
	return d.seq
}

type memRepositories struct {
	data *memData
	now  func() time.Time
}

func (r *memRepositories) Users() UserRepository                   { return &memUsers{r} }
func (r *memRepositories) Clubs() ClubRepository                   { return &memClubs{r} }
func (r *memRepositories) AlternateNames() AlternateNameRepository { return &memAltNames{r} }
func (r *memRepositories) Carnivals() CarnivalRepository           { return &memCarnivals{r} }
func (r *memRepositories) Attendances() AttendanceRepository       { return &memAttendances{r} }
func (r *memRepositories) Subscriptions() SubscriptionRepository   { return &memSubscriptions{r} }
func (r *memRepositories) Tokens() InvitationTokenRepository       { return &memTokens{r} }

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, what)
}

func foldEq(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// stamp sets CreatedAt on insert and UpdatedAt on every write.
func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// users

type memUsers struct{ *memRepositories }

func (r *memUsers) check(u model.User) error {
	for id, other := range r.data.users {
		if id == u.ID {
			continue
		}
		if foldEq(other.Email, u.Email) {
			return duplicate("users email")
		}
		if u.IsPrimaryDelegate && u.IsActive && other.IsPrimaryDelegate && other.IsActive &&
			u.ClubID != nil && other.InClub(*u.ClubID) {
			return duplicate("users primary delegate")
		}
	}
	return nil
}

func (r *memUsers) Create(_ context.Context, user *model.User) error {
	if err := r.check(*user); err != nil {
		return err
	}
	user.ID = r.data.nextID()
	stamp(&user.CreatedAt, &user.UpdatedAt, r.now())
	r.data.users[user.ID] = *user
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id uint) (*model.User, error) {
	u, ok := r.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.data.users {
		if foldEq(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUsers) Update(_ context.Context, user *model.User) error {
	if _, ok := r.data.users[user.ID]; !ok {
		return ErrNotFound
	}
	if err := r.check(*user); err != nil {
		return err
	}
	stamp(&user.CreatedAt, &user.UpdatedAt, r.now())
	r.data.users[user.ID] = *user
	return nil
}

func (r *memUsers) ListByClub(_ context.Context, clubID uint) ([]model.User, error) {
	var out []model.User
	for _, u := range r.data.users {
		if u.IsActive && u.InClub(clubID) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b model.User) int {
		if c := cmpTimePtr(a.JoinedClubAt, b.JoinedClubAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// cmpTimePtr orders nil after any time.
func cmpTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

// clubs

type memClubs struct{ *memRepositories }

func (r *memClubs) check(c model.Club) error {
	if !c.IsActive {
		return nil
	}
	for id, other := range r.data.clubs {
		if id != c.ID && other.IsActive && foldEq(other.ClubName, c.ClubName) {
			return duplicate("clubs club_name")
		}
	}
	return nil
}

func (r *memClubs) Create(_ context.Context, club *model.Club) error {
	if err := r.check(*club); err != nil {
		return err
	}
	club.ID = r.data.nextID()
	stamp(&club.CreatedAt, &club.UpdatedAt, r.now())
	r.data.clubs[club.ID] = *club
	return nil
}

func (r *memClubs) GetByID(_ context.Context, id uint) (*model.Club, error) {
	c, ok := r.data.clubs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// GetForUpdate needs no row lock: memory transactions are already serialized.
func (r *memClubs) GetForUpdate(ctx context.Context, id uint) (*model.Club, error) {
	return r.GetByID(ctx, id)
}

func (r *memClubs) GetActiveByName(_ context.Context, name string) (*model.Club, error) {
	for _, c := range r.data.clubs {
		if c.IsActive && foldEq(c.ClubName, name) {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memClubs) Update(_ context.Context, club *model.Club) error {
	if _, ok := r.data.clubs[club.ID]; !ok {
		return ErrNotFound
	}
	if err := r.check(*club); err != nil {
		return err
	}
	stamp(&club.CreatedAt, &club.UpdatedAt, r.now())
	r.data.clubs[club.ID] = *club
	return nil
}

func (r *memClubs) List(_ context.Context, filter ClubFilter) ([]model.Club, error) {
	var out []model.Club
	for _, c := range r.data.clubs {
		if !c.IsActive || (!filter.IncludeUnlisted && !c.IsPubliclyListed) {
			continue
		}
		if filter.State != nil && c.State != *filter.State {
			continue
		}
		if strings.TrimSpace(filter.Text) != "" && !r.matches(c, filter.Text) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b model.Club) int {
		return cmp.Or(cmp.Compare(a.ClubName, b.ClubName), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *memClubs) matches(c model.Club, text string) bool {
	if containsFold(c.ClubName, text) || containsFold(c.Location, text) {
		return true
	}
	for _, n := range r.data.altNames {
		if n.ClubID == c.ID && n.IsActive && containsFold(n.AlternateName, text) {
			return true
		}
	}
	return false
}

// alternate names

type memAltNames struct{ *memRepositories }

func (r *memAltNames) check(n model.ClubAlternateName) error {
	if !n.IsActive {
		return nil
	}
	for id, other := range r.data.altNames {
		if id != n.ID && other.IsActive && other.ClubID == n.ClubID && foldEq(other.AlternateName, n.AlternateName) {
			return duplicate("club_alternate_names alternate_name")
		}
	}
	return nil
}

func (r *memAltNames) Create(_ context.Context, name *model.ClubAlternateName) error {
	if err := r.check(*name); err != nil {
		return err
	}
	name.ID = r.data.nextID()
	stamp(&name.CreatedAt, &name.UpdatedAt, r.now())
	r.data.altNames[name.ID] = *name
	return nil
}

func (r *memAltNames) GetByID(_ context.Context, id uint) (*model.ClubAlternateName, error) {
	n, ok := r.data.altNames[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (r *memAltNames) ListByClub(_ context.Context, clubID uint) ([]model.ClubAlternateName, error) {
	var out []model.ClubAlternateName
	for _, n := range r.data.altNames {
		if n.ClubID == clubID && n.IsActive {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b model.ClubAlternateName) int {
		return cmp.Compare(a.AlternateName, b.AlternateName)
	})
	return out, nil
}

func (r *memAltNames) Update(_ context.Context, name *model.ClubAlternateName) error {
	if _, ok := r.data.altNames[name.ID]; !ok {
		return ErrNotFound
	}
	if err := r.check(*name); err != nil {
		return err
	}
	stamp(&name.CreatedAt, &name.UpdatedAt, r.now())
	r.data.altNames[name.ID] = *name
	return nil
}

// carnivals

type memCarnivals struct{ *memRepositories }

func cloneCarnival(c model.Carnival) model.Carnival {
	c.PromotionalImages = slices.Clone(c.PromotionalImages)
	c.DrawFiles = slices.Clone(c.DrawFiles)
	return c
}

func (r *memCarnivals) check(c model.Carnival) error {
	if c.IsManuallyEntered != (c.ExternalEventID == nil) {
		return fmt.Errorf("carnivals: manual entry must match absent external id")
	}
	if !c.IsActive || c.ExternalEventID == nil {
		return nil
	}
	for id, other := range r.data.carnivals {
		if id != c.ID && other.IsActive && other.ExternalEventID != nil && *other.ExternalEventID == *c.ExternalEventID {
			return duplicate("carnivals external_event_id")
		}
	}
	return nil
}

func (r *memCarnivals) Create(_ context.Context, carnival *model.Carnival) error {
	if err := r.check(*carnival); err != nil {
		return err
	}
	carnival.ID = r.data.nextID()
	stamp(&carnival.CreatedAt, &carnival.UpdatedAt, r.now())
	r.data.carnivals[carnival.ID] = cloneCarnival(*carnival)
	return nil
}

func (r *memCarnivals) GetByID(_ context.Context, id uint) (*model.Carnival, error) {
	c, ok := r.data.carnivals[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCarnival(c)
	return &c, nil
}

func (r *memCarnivals) GetForUpdate(ctx context.Context, id uint) (*model.Carnival, error) {
	return r.GetByID(ctx, id)
}

func (r *memCarnivals) GetActiveByExternalID(_ context.Context, externalID string) (*model.Carnival, error) {
	for _, c := range r.data.carnivals {
		if c.IsActive && c.ExternalEventID != nil && *c.ExternalEventID == externalID {
			c = cloneCarnival(c)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memCarnivals) Update(_ context.Context, carnival *model.Carnival) error {
	if _, ok := r.data.carnivals[carnival.ID]; !ok {
		return ErrNotFound
	}
	if err := r.check(*carnival); err != nil {
		return err
	}
	stamp(&carnival.CreatedAt, &carnival.UpdatedAt, r.now())
	r.data.carnivals[carnival.ID] = cloneCarnival(*carnival)
	return nil
}

func (r *memCarnivals) AssignOwner(_ context.Context, id, userID uint) error {
	c, ok := r.data.carnivals[id]
	if !ok || !c.IsActive || c.CreatedByUserID != nil {
		return ErrStale
	}
	c.CreatedByUserID = &userID
	c.UpdatedAt = r.now()
	r.data.carnivals[id] = c
	return nil
}

func (r *memCarnivals) List(_ context.Context, filter CarnivalFilter) ([]model.Carnival, error) {
	var out []model.Carnival
	for _, c := range r.data.carnivals {
		if !c.IsActive {
			continue
		}
		if filter.State != nil && c.State != *filter.State {
			continue
		}
		if filter.UpcomingFrom != nil && c.Date.Before(*filter.UpcomingFrom) {
			continue
		}
		if filter.ExternalOnly && c.ExternalEventID == nil {
			continue
		}
		if strings.TrimSpace(filter.Text) != "" &&
			!containsFold(c.Title, filter.Text) && !containsFold(c.LocationAddress, filter.Text) {
			continue
		}
		out = append(out, cloneCarnival(c))
	}
	slices.SortFunc(out, func(a, b model.Carnival) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// attendances

type memAttendances struct{ *memRepositories }

func (r *memAttendances) check(reg model.CarnivalClub) error {
	if reg.IsPaid != (reg.PaymentDate != nil) {
		return fmt.Errorf("carnival_clubs: is_paid must match payment_date")
	}
	if !reg.IsActive {
		return nil
	}
	for id, other := range r.data.attendances {
		if id != reg.ID && other.IsActive && other.CarnivalID == reg.CarnivalID && other.ClubID == reg.ClubID {
			return duplicate("carnival_clubs carnival_id, club_id")
		}
	}
	return nil
}

func (r *memAttendances) Create(_ context.Context, reg *model.CarnivalClub) error {
	if err := r.check(*reg); err != nil {
		return err
	}
	reg.ID = r.data.nextID()
	stamp(&reg.CreatedAt, &reg.UpdatedAt, r.now())
	r.data.attendances[reg.ID] = *reg
	return nil
}

func (r *memAttendances) GetByID(_ context.Context, id uint) (*model.CarnivalClub, error) {
	reg, ok := r.data.attendances[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &reg, nil
}

func (r *memAttendances) GetActive(_ context.Context, carnivalID, clubID uint) (*model.CarnivalClub, error) {
	for _, reg := range r.data.attendances {
		if reg.IsActive && reg.CarnivalID == carnivalID && reg.ClubID == clubID {
			return &reg, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memAttendances) list(keep func(model.CarnivalClub) bool, order func(a, b model.CarnivalClub) int) []model.CarnivalClub {
	var out []model.CarnivalClub
	for _, reg := range r.data.attendances {
		if reg.IsActive && keep(reg) {
			out = append(out, reg)
		}
	}
	slices.SortFunc(out, order)
	return out
}

func (r *memAttendances) ListActiveByCarnival(_ context.Context, carnivalID uint) ([]model.CarnivalClub, error) {
	return r.list(
		func(reg model.CarnivalClub) bool { return reg.CarnivalID == carnivalID },
		func(a, b model.CarnivalClub) int {
			return cmp.Or(
				cmp.Compare(a.DisplayOrder, b.DisplayOrder),
				a.RegistrationDate.Compare(b.RegistrationDate),
				cmp.Compare(a.ID, b.ID),
			)
		},
	), nil
}

func (r *memAttendances) ListActiveByClub(_ context.Context, clubID uint) ([]model.CarnivalClub, error) {
	return r.list(
		func(reg model.CarnivalClub) bool { return reg.ClubID == clubID },
		func(a, b model.CarnivalClub) int {
			return cmp.Or(a.RegistrationDate.Compare(b.RegistrationDate), cmp.Compare(a.ID, b.ID))
		},
	), nil
}

func (r *memAttendances) MaxDisplayOrder(_ context.Context, carnivalID uint) (int, error) {
	highest := 0
	for _, reg := range r.data.attendances {
		if reg.IsActive && reg.CarnivalID == carnivalID && reg.DisplayOrder > highest {
			highest = reg.DisplayOrder
		}
	}
	return highest, nil
}

func (r *memAttendances) Update(_ context.Context, reg *model.CarnivalClub) error {
	if _, ok := r.data.attendances[reg.ID]; !ok {
		return ErrNotFound
	}
	if err := r.check(*reg); err != nil {
		return err
	}
	stamp(&reg.CreatedAt, &reg.UpdatedAt, r.now())
	r.data.attendances[reg.ID] = *reg
	return nil
}

// subscriptions

type memSubscriptions struct{ *memRepositories }

func cloneSubscription(s model.EmailSubscription) model.EmailSubscription {
	s.States = slices.Clone(s.States)
	s.NotificationTypes = slices.Clone(s.NotificationTypes)
	return s
}

func (r *memSubscriptions) check(s model.EmailSubscription) error {
	for id, other := range r.data.subscriptions {
		if id == s.ID {
			continue
		}
		if foldEq(other.Email, s.Email) {
			return duplicate("email_subscriptions email")
		}
		if other.UnsubscribeToken == s.UnsubscribeToken {
			return duplicate("email_subscriptions unsubscribe_token")
		}
	}
	return nil
}

func (r *memSubscriptions) Create(_ context.Context, sub *model.EmailSubscription) error {
	if err := r.check(*sub); err != nil {
		return err
	}
	sub.ID = r.data.nextID()
	stamp(&sub.CreatedAt, &sub.UpdatedAt, r.now())
	r.data.subscriptions[sub.ID] = cloneSubscription(*sub)
	return nil
}

func (r *memSubscriptions) GetByEmail(_ context.Context, email string) (*model.EmailSubscription, error) {
	for _, s := range r.data.subscriptions {
		if foldEq(s.Email, email) {
			s = cloneSubscription(s)
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memSubscriptions) GetByUnsubscribeToken(_ context.Context, token string) (*model.EmailSubscription, error) {
	for _, s := range r.data.subscriptions {
		if s.UnsubscribeToken == token {
			s = cloneSubscription(s)
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memSubscriptions) Update(_ context.Context, sub *model.EmailSubscription) error {
	if _, ok := r.data.subscriptions[sub.ID]; !ok {
		return ErrNotFound
	}
	if err := r.check(*sub); err != nil {
		return err
	}
	stamp(&sub.CreatedAt, &sub.UpdatedAt, r.now())
	r.data.subscriptions[sub.ID] = cloneSubscription(*sub)
	return nil
}

func (r *memSubscriptions) ListActiveFor(
	_ context.Context, state model.State, kind model.NotificationType,
) ([]model.EmailSubscription, error) {
	var out []model.EmailSubscription
	for _, s := range r.data.subscriptions {
		if s.Wants(state, kind) {
			out = append(out, cloneSubscription(s))
		}
	}
	slices.SortFunc(out, func(a, b model.EmailSubscription) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// invitation tokens

type memTokens struct{ *memRepositories }

func (r *memTokens) Create(_ context.Context, token *model.InvitationToken) error {
	for _, other := range r.data.tokens {
		if other.Value == token.Value {
			return duplicate("invitation_tokens value")
		}
	}
	token.ID = r.data.nextID()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = r.now()
	}
	r.data.tokens[token.ID] = *token
	return nil
}

func (r *memTokens) GetByValue(_ context.Context, value string) (*model.InvitationToken, error) {
	for _, t := range r.data.tokens {
		if t.Value == value {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memTokens) Consume(_ context.Context, value string, now time.Time) error {
	for id, t := range r.data.tokens {
		if t.Value != value {
			continue
		}
		if !t.Usable(now) {
			return ErrStale
		}
		t.ConsumedAt = &now
		r.data.tokens[id] = t
		return nil
	}
	return ErrStale
}

func (r *memTokens) PurgeSpent(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, t := range r.data.tokens {
		if !t.Usable(now) {
			delete(r.data.tokens, id)
			n++
		}
	}
	return n, nil
}
