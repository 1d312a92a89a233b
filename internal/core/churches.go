package core

import (
	"context"
	"strings"

	"churchledger/internal/events"
	"churchledger/pkg/domain"
)

// RegisterChurch creates a church with empty collections and a member
// counter of one. Initials are stored upper-cased.
func (s *Service) RegisterChurch(ctx context.Context, name, initials string) (Church, Result, error) {
	name = strings.TrimSpace(name)
	initials = strings.TrimSpace(initials)
	var created Church
	res, err := s.run(ctx, "register_church", func(tx Transaction) error {
		if name == "" || initials == "" {
			return domain.Invalid("church", "Please enter church name and initials")
		}
		if !domain.ValidInitials(initials) {
			return domain.Invalid("initials", "Church initials must be 2-4 letters only")
		}
		if _, exists := tx.FindChurch(name); exists {
			return domain.Invalid("name", "Church already exists")
		}
		for _, other := range tx.Snapshot().ListChurches() {
			if strings.EqualFold(other.Initials, initials) {
				return domain.Invalid("initials", "Church initials already in use")
			}
		}
		var err error
		created, err = tx.CreateChurch(Church{
			Name:          name,
			Initials:      strings.ToUpper(initials),
			MemberCounter: 1,
		})
		return err
	})
	if err != nil {
		return Church{}, res, err
	}
	s.publish(ctx, events.ChurchRegistered, created.Name, created.Initials)
	return created, res, nil
}

// MemberInput carries the member registration form.
type MemberInput struct {
	Church string
	Name   string
	Sex    string
	Age    int
	Title  string
}

// RegisterMember adds an active member registered today, with an id seeded
// by the church initials.
func (s *Service) RegisterMember(ctx context.Context, in MemberInput) (Member, Result, error) {
	var created Member
	res, err := s.run(ctx, "register_member", func(tx Transaction) error {
		if blank(in.Church, in.Name, in.Sex, in.Title) || in.Age == 0 {
			return domain.Invalid("member", "Please fill all member details")
		}
		sex, ok := domain.ParseSex(in.Sex)
		if !ok {
			return domain.Invalid("sex", "Please select a valid sex")
		}
		if in.Age < domain.MinAge || in.Age > domain.MaxAge {
			return domain.Invalid("age", "Please enter a valid age")
		}
		church, err := findChurch(tx, in.Church)
		if err != nil {
			return err
		}
		created = Member{
			ID:             s.ids.Unique(church.Initials, memberTaken(church)),
			Name:           strings.TrimSpace(in.Name),
			Sex:            sex,
			Age:            in.Age,
			Title:          strings.TrimSpace(in.Title),
			Status:         domain.StatusActive,
			RegisteredDate: domain.CalendarDate(s.clock.Now()),
		}
		_, err = tx.UpdateChurch(church.Name, func(c *Church) error {
			c.Members[created.ID] = created
			c.MemberCounter++
			return nil
		})
		return err
	})
	if err != nil {
		return Member{}, res, err
	}
	s.publish(ctx, events.MemberRegistered, in.Church, created.ID)
	return created, res, nil
}

// TransferMember moves a member and their contribution records to another
// church under a new id seeded by the target church's initials.
func (s *Service) TransferMember(ctx context.Context, from, to, memberID string) (Member, Result, error) {
	var moved Member
	res, err := s.run(ctx, "transfer_member", func(tx Transaction) error {
		if blank(from, to, memberID) {
			return domain.Invalid("transfer", "Please fill all transfer fields")
		}
		if from == to {
			return domain.Invalid("to", "Cannot transfer to the same church")
		}
		source, err := findChurch(tx, from)
		if err != nil {
			return err
		}
		target, err := findChurch(tx, to)
		if err != nil {
			return err
		}
		member, ok := source.Members[memberID]
		if !ok {
			return memberNotFound(memberID)
		}
		moved = member
		moved.ID = s.ids.Unique(target.Initials, memberTaken(target))

		var carried []Tithe
		if _, err := tx.UpdateChurch(from, func(c *Church) error {
			kept := c.Tithes[:0]
			for _, t := range c.Tithes {
				if t.MemberID == memberID {
					t.MemberID = moved.ID
					carried = append(carried, t)
					continue
				}
				kept = append(kept, t)
			}
			c.Tithes = kept
			delete(c.Members, memberID)
			return nil
		}); err != nil {
			return err
		}
		_, err = tx.UpdateChurch(to, func(c *Church) error {
			c.Members[moved.ID] = moved
			c.Tithes = append(c.Tithes, carried...)
			return nil
		})
		return err
	})
	if err != nil {
		return Member{}, res, err
	}
	s.logger.Info("member transferred", "from", from, "to", to, "old_id", memberID, "new_id", moved.ID)
	s.publish(ctx, events.MemberTransferred, to, moved.ID)
	return moved, res, nil
}

// FlagMember sets a member's status.
func (s *Service) FlagMember(ctx context.Context, churchName, memberID string, status domain.MemberStatus) (Member, Result, error) {
	var updated Member
	res, err := s.run(ctx, "flag_member", func(tx Transaction) error {
		if blank(churchName, memberID, string(status)) {
			return domain.Invalid("member", "Please fill all fields")
		}
		if !status.Valid() {
			return domain.Invalid("status", "Unknown member status "+string(status))
		}
		church, err := findChurch(tx, churchName)
		if err != nil {
			return err
		}
		if _, ok := church.Members[memberID]; !ok {
			return memberNotFound(memberID)
		}
		_, err = tx.UpdateChurch(churchName, func(c *Church) error {
			m := c.Members[memberID]
			m.Status = status
			c.Members[memberID] = m
			updated = m
			return nil
		})
		return err
	})
	if err != nil {
		return Member{}, res, err
	}
	s.publish(ctx, events.MemberFlagged, churchName, memberID)
	return updated, res, nil
}

// DeleteMember removes a member and every contribution record referencing
// them in the same church. It returns the removed member.
func (s *Service) DeleteMember(ctx context.Context, churchName, memberID string) (Member, Result, error) {
	var removed Member
	var cascaded int
	res, err := s.run(ctx, "delete_member", func(tx Transaction) error {
		if blank(churchName, memberID) {
			return domain.Invalid("member", "Please select church and member")
		}
		church, err := findChurch(tx, churchName)
		if err != nil {
			return err
		}
		member, ok := church.Members[memberID]
		if !ok {
			return memberNotFound(memberID)
		}
		removed = member
		_, err = tx.UpdateChurch(churchName, func(c *Church) error {
			delete(c.Members, memberID)
			kept := c.Tithes[:0]
			for _, t := range c.Tithes {
				if t.MemberID == memberID {
					cascaded++
					continue
				}
				kept = append(kept, t)
			}
			c.Tithes = kept
			return nil
		})
		return err
	})
	if err != nil {
		return Member{}, res, err
	}
	s.logger.Info("member deleted", "church", churchName, "id", memberID, "tithes_removed", cascaded)
	s.publish(ctx, events.MemberDeleted, churchName, memberID)
	return removed, res, nil
}

func memberTaken(church Church) func(string) bool {
	return func(id string) bool {
		_, ok := church.Members[id]
		return ok
	}
}
