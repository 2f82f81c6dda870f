package users

import "gorm.io/gorm"

type profileFields struct {
	name      string
	phone     string
	address   string
	bloodType string
}

func (p *profileFields) apply(in UpdateInput) {
	if in.Phone != nil {
		p.phone = *in.Phone
	}
	if in.Address != nil {
		p.address = *in.Address
	}
	if in.BloodType != nil {
		p.bloodType = *in.BloodType
	}
}

func currentProfile(u *User) profileFields {
	p := profileFields{name: u.Name}
	switch {
	case u.Teacher != nil:
		p.phone, p.address, p.bloodType = u.Teacher.Phone, u.Teacher.Address, u.Teacher.BloodType
	case u.Student != nil:
		p.phone, p.address, p.bloodType = u.Student.Phone, u.Student.Address, u.Student.BloodType
	case u.Parent != nil:
		p.phone, p.address = u.Parent.Phone, u.Parent.Address
	}
	return p
}

// createProfile inserts the sub-record for role. Admins have none.
func createProfile(tx *gorm.DB, u *User, role Role, p profileFields) error {
	switch role {
	case RoleTeacher:
		u.Teacher = &Teacher{UserID: u.ID, Name: p.name, Phone: p.phone, Address: p.address, BloodType: p.bloodType}
		return tx.Create(u.Teacher).Error
	case RoleStudent:
		u.Student = &Student{UserID: u.ID, Name: p.name, Phone: p.phone, Address: p.address, BloodType: p.bloodType}
		return tx.Create(u.Student).Error
	case RoleParent:
		u.Parent = &Parent{UserID: u.ID, Name: p.name, Phone: p.phone, Address: p.address}
		return tx.Create(u.Parent).Error
	}
	return nil
}

// deleteProfiles hard-deletes the profiles of every role except keep.
func deleteProfiles(tx *gorm.DB, userID string, keep Role) error {
	targets := map[Role]any{
		RoleTeacher: &Teacher{},
		RoleStudent: &Student{},
		RoleParent:  &Parent{},
	}
	for role, model := range targets {
		if role == keep {
			continue
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func updateProfile(tx *gorm.DB, userID string, role Role, p profileFields) error {
	values := map[string]any{"name": p.name, "phone": p.phone, "address": p.address}

	var model any
	switch role {
	case RoleTeacher:
		model = &Teacher{}
		values["blood_type"] = p.bloodType
	case RoleStudent:
		model = &Student{}
		values["blood_type"] = p.bloodType
	case RoleParent:
		model = &Parent{}
	default:
		return nil
	}

	return tx.Model(model).Where("user_id = ?", userID).Updates(values).Error
}
